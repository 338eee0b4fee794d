package reconstruction

import "errors"

var (
	// ErrNoValidSlices is returned when no slice survives filtering
	ErrNoValidSlices = errors.New("no valid slices found")

	// ErrNoPixelData marks a DICOM file without a usable pixel grid
	ErrNoPixelData = errors.New("no pixel data")

	// ErrInconsistentShape is returned when slices differ in pixel grid size
	ErrInconsistentShape = errors.New("slices have different pixel grid shapes")

	// ErrMissingGeometry is returned when pixel spacing or slice
	// thickness is absent
	ErrMissingGeometry = errors.New("missing pixel spacing or slice thickness")

	// ErrInconsistentGeometry is returned when slices differ in pixel
	// spacing or slice thickness
	ErrInconsistentGeometry = errors.New("slices have different pixel spacing or thickness")
)
