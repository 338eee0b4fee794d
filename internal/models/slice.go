package models

import (
	"gonum.org/v1/gonum/mat"
)

// Slice represents a single parsed DICOM slice with the attributes the
// pipeline consumes
type Slice struct {
	// Filename is the path the slice was read from
	Filename string

	// Pixels is the 2D pixel grid (rows x columns) of the first frame
	Pixels *mat.Dense

	// Location is the SliceLocation value along the stacking axis.
	// Only meaningful when HasLocation is set; scout and localizer
	// images usually carry no location.
	Location    float64
	HasLocation bool

	// PixelSpacing is the physical size in mm of a pixel as
	// (row spacing, column spacing)
	PixelSpacing    [2]float64
	HasPixelSpacing bool

	// Thickness is the SliceThickness in mm
	Thickness    float64
	HasThickness bool

	// InstanceNumber is informational only
	InstanceNumber int
}

// Shape returns the pixel grid dimensions of the slice
func (s *Slice) Shape() (rows, cols int) {
	if s.Pixels == nil {
		return 0, 0
	}
	return s.Pixels.Dims()
}

// Geometry holds the physical sampling shared by every slice of a series
type Geometry struct {
	PixelSpacing [2]float64
	Thickness    float64
}

// Volume represents a 3D volume stacked from sorted DICOM slices
type Volume struct {
	// Data is the volume stored slice by slice, each slice in row-major
	// order: index = slice*Rows*Cols + row*Cols + col
	Data []float64

	// Rows and Cols are the pixel grid dimensions of every slice
	Rows int
	Cols int

	// Slices is the number of stacked slices
	Slices int
}

// NewVolume allocates a zeroed volume of shape (rows, cols, slices)
func NewVolume(rows, cols, slices int) *Volume {
	return &Volume{
		Data:   make([]float64, rows*cols*slices),
		Rows:   rows,
		Cols:   cols,
		Slices: slices,
	}
}

// Shape returns (rows, columns, slices)
func (v *Volume) Shape() (int, int, int) {
	return v.Rows, v.Cols, v.Slices
}

func (v *Volume) index(row, col, slice int) int {
	return slice*v.Rows*v.Cols + row*v.Cols + col
}

// At returns the value at [row, col, slice]
func (v *Volume) At(row, col, slice int) float64 {
	return v.Data[v.index(row, col, slice)]
}

// Set stores a value at [row, col, slice]
func (v *Volume) Set(row, col, slice int, value float64) {
	v.Data[v.index(row, col, slice)] = value
}
