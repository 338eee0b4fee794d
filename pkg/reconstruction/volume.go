package reconstruction

import (
	"fmt"

	"dicomvolume/internal/models"
)

// BuildVolume stacks the sorted slices into a volume of shape
// (rows, cols, len(slices)). Pixel values are copied unchanged.
func BuildVolume(slices []*models.Slice) (*models.Volume, error) {
	if len(slices) == 0 {
		return nil, ErrNoValidSlices
	}

	rows, cols := slices[0].Shape()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPixelData, slices[0].Filename)
	}

	for _, s := range slices[1:] {
		r, c := s.Shape()
		if r != rows || c != cols {
			return nil, fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
				ErrInconsistentShape, s.Filename, r, c, rows, cols)
		}
	}

	vol := models.NewVolume(rows, cols, len(slices))
	size := rows * cols
	for i, s := range slices {
		plane := vol.Data[i*size : (i+1)*size]
		for y := 0; y < rows; y++ {
			copy(plane[y*cols:(y+1)*cols], s.Pixels.RawRowView(y))
		}
	}

	return vol, nil
}
