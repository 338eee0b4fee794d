package visualization

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"dicomvolume/internal/models"
)

// Axis names one of the three orthogonal viewing planes
type Axis string

const (
	// Axial planes are the stacked slices themselves: vol[:, :, k]
	Axial Axis = "axial"
	// Sagittal planes cut through a column: vol[:, k, :]
	Sagittal Axis = "sagittal"
	// Coronal planes cut through a row: vol[k, :, :] transposed
	Coronal Axis = "coronal"
)

// Axes lists the planes in figure order
var Axes = []Axis{Axial, Sagittal, Coronal}

// ParseAxis accepts a plane name or the x/y/z shorthand
// (x = sagittal, y = coronal, z = axial)
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "axial", "z":
		return Axial, nil
	case "sagittal", "x":
		return Sagittal, nil
	case "coronal", "y":
		return Coronal, nil
	}
	return "", fmt.Errorf("invalid axis: %s (must be axial, sagittal or coronal)", s)
}

// Viewer renders views of a reconstructed volume
type Viewer struct {
	volume *models.Volume

	// geometry is nil when the series has no usable spacing; views are
	// then drawn with square pixels
	geometry *models.Geometry
}

// NewViewer creates a viewer for vol. geom may be nil.
func NewViewer(vol *models.Volume, geom *models.Geometry) *Viewer {
	return &Viewer{
		volume:   vol,
		geometry: geom,
	}
}

// Length returns the number of planes along axis
func (v *Viewer) Length(axis Axis) (int, error) {
	switch axis {
	case Axial:
		return v.volume.Slices, nil
	case Sagittal:
		return v.volume.Cols, nil
	case Coronal:
		return v.volume.Rows, nil
	}
	return 0, fmt.Errorf("invalid axis: %s", axis)
}

// ExtractSlice extracts a 2D plane from the volume.
//
//	axial:    vol[:, :, k]    -> rows x cols
//	sagittal: vol[:, k, :]    -> rows x slices
//	coronal:  vol[k, :, :]^T  -> slices x cols
func (v *Viewer) ExtractSlice(axis Axis, position int) (*mat.Dense, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	n, err := v.Length(axis)
	if err != nil {
		return nil, err
	}
	if position >= n {
		return nil, fmt.Errorf("position %d exceeds %s length %d", position, axis, n)
	}

	vol := v.volume
	switch axis {
	case Axial:
		size := vol.Rows * vol.Cols
		plane := make([]float64, size)
		copy(plane, vol.Data[position*size:(position+1)*size])
		return mat.NewDense(vol.Rows, vol.Cols, plane), nil

	case Sagittal:
		m := mat.NewDense(vol.Rows, vol.Slices, nil)
		for r := 0; r < vol.Rows; r++ {
			for s := 0; s < vol.Slices; s++ {
				m.Set(r, s, vol.At(r, position, s))
			}
		}
		return m, nil

	default:
		// built as cols x slices, then transposed for display
		m := mat.NewDense(vol.Cols, vol.Slices, nil)
		for c := 0; c < vol.Cols; c++ {
			for s := 0; s < vol.Slices; s++ {
				m.Set(c, s, vol.At(position, c, s))
			}
		}
		return mat.DenseCopyOf(m.T()), nil
	}
}

// SaveSlice saves a plane as a grayscale PNG windowed to its own range
func (v *Viewer) SaveSlice(m mat.Matrix, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, toGray(m))
}

// SaveSliceSequence extracts and saves every plane along the specified axis
func (v *Viewer) SaveSliceSequence(axis Axis, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	n, err := v.Length(axis)
	if err != nil {
		return err
	}

	for pos := 0; pos < n; pos++ {
		m, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(m, filename); err != nil {
			return err
		}
	}

	return nil
}
