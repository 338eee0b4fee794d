package reconstruction

import (
	"fmt"
	"math"
	"sort"

	"dicomvolume/internal/models"
)

// FilterAndSort keeps the slices that carry a SliceLocation and orders
// them ascending by it. Slices with equal locations keep their input
// order. skipped is the number of slices dropped.
func FilterAndSort(slices []*models.Slice) (sorted []*models.Slice, skipped int) {
	sorted = make([]*models.Slice, 0, len(slices))
	for _, s := range slices {
		if s.HasLocation {
			sorted = append(sorted, s)
		}
	}
	skipped = len(slices) - len(sorted)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Location < sorted[j].Location
	})
	return sorted, skipped
}

// CheckGeometry returns the pixel spacing and slice thickness of the
// series, taken from the first slice, after verifying that every other
// slice agrees within tolerance.
func CheckGeometry(slices []*models.Slice, tolerance float64) (models.Geometry, error) {
	var geom models.Geometry
	if len(slices) == 0 {
		return geom, ErrNoValidSlices
	}

	first := slices[0]
	if !first.HasPixelSpacing || !first.HasThickness {
		return geom, fmt.Errorf("%w: %s", ErrMissingGeometry, first.Filename)
	}
	geom.PixelSpacing = first.PixelSpacing
	geom.Thickness = first.Thickness

	for _, s := range slices[1:] {
		if !s.HasPixelSpacing || !s.HasThickness {
			return geom, fmt.Errorf("%w: %s", ErrMissingGeometry, s.Filename)
		}
		if math.Abs(s.PixelSpacing[0]-geom.PixelSpacing[0]) > tolerance ||
			math.Abs(s.PixelSpacing[1]-geom.PixelSpacing[1]) > tolerance ||
			math.Abs(s.Thickness-geom.Thickness) > tolerance {
			return geom, fmt.Errorf("%w: %s has spacing %v thickness %g, expected %v thickness %g",
				ErrInconsistentGeometry, s.Filename, s.PixelSpacing, s.Thickness,
				geom.PixelSpacing, geom.Thickness)
		}
	}

	if geom.PixelSpacing[0] <= 0 || geom.PixelSpacing[1] <= 0 || geom.Thickness <= 0 {
		return geom, fmt.Errorf("%w: non-positive spacing %v or thickness %g",
			ErrMissingGeometry, geom.PixelSpacing, geom.Thickness)
	}
	return geom, nil
}
