package visualization

import (
	"dicomvolume/internal/models"
)

// Aspects returns the display aspect ratio (height per unit width) of
// each orthogonal view for the given series geometry
func Aspects(geom models.Geometry) (axial, sagittal, coronal float64) {
	ps, ss := geom.PixelSpacing, geom.Thickness
	axial = ps[1] / ps[0]
	sagittal = ps[1] / ss
	coronal = ss / ps[0]
	return axial, sagittal, coronal
}

// MiddleIndices returns the plane index at the middle of each axis,
// rounding down
func MiddleIndices(vol *models.Volume) (axial, sagittal, coronal int) {
	return vol.Slices / 2, vol.Cols / 2, vol.Rows / 2
}

// aspect returns the display aspect of axis, 1 without geometry
func (v *Viewer) aspect(axis Axis) float64 {
	if v.geometry == nil {
		return 1
	}
	ax, sag, cor := Aspects(*v.geometry)
	switch axis {
	case Sagittal:
		return sag
	case Coronal:
		return cor
	}
	return ax
}
