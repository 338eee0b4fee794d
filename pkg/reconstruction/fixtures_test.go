package reconstruction

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// sliceFixture describes a synthetic CT slice written by writeSlice
type sliceFixture struct {
	rows, cols int

	// location is written as SliceLocation unless noLocation is set;
	// locationText replaces the formatted value when not empty
	location     float64
	noLocation   bool
	locationText string

	spacing   [2]float64
	thickness float64

	// signed writes PixelRepresentation 1; bitsStored defaults to 16
	signed     bool
	bitsStored int

	// pixel returns the value at (row, col); negative values are only
	// valid for signed fixtures
	pixel func(row, col int) int
}

func newFixture(rows, cols int, location float64) sliceFixture {
	return sliceFixture{
		rows:      rows,
		cols:      cols,
		location:  location,
		spacing:   [2]float64{0.5, 0.5},
		thickness: 2.0,
		pixel: func(row, col int) int {
			return int(location)*100 + row*cols + col
		},
	}
}

func mustNewElement(t *testing.T, tg tag.Tag, value any) *dicom.Element {
	t.Helper()
	el, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("Failed to create element %v: %v", tg, err)
	}
	return el
}

// writeSlice writes fx as a DICOM file named name inside dir
func writeSlice(t *testing.T, dir, name string, fx sliceFixture) string {
	t.Helper()

	nativeFrame := frame.NewNativeFrame[uint16](16, fx.rows, fx.cols, fx.rows*fx.cols, 1)
	for y := 0; y < fx.rows; y++ {
		for x := 0; x < fx.cols; x++ {
			// two's complement when signed
			nativeFrame.RawData[y*fx.cols+x] = uint16(fx.pixel(y, x))
		}
	}

	bitsStored := fx.bitsStored
	if bitsStored == 0 {
		bitsStored = 16
	}
	pixelRepresentation := 0
	if fx.signed {
		pixelRepresentation = 1
	}
	locationText := fx.locationText
	if locationText == "" {
		locationText = fmt.Sprintf("%.6f", fx.location)
	}

	sopInstanceUID := fmt.Sprintf("1.2.826.0.1.3680043.8.1055.1.%d", len(name)+fx.rows*fx.cols+int(fx.location*10))
	elements := []*dicom.Element{
		mustNewElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustNewElement(t, tag.MediaStorageSOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(t, tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustNewElement(t, tag.SOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(t, tag.Modality, []string{"CT"}),
		mustNewElement(t, tag.SliceThickness, []string{fmt.Sprintf("%.6f", fx.thickness)}),
		mustNewElement(t, tag.PixelSpacing, []string{
			fmt.Sprintf("%.6f", fx.spacing[0]),
			fmt.Sprintf("%.6f", fx.spacing[1]),
		}),
		mustNewElement(t, tag.Rows, []int{fx.rows}),
		mustNewElement(t, tag.Columns, []int{fx.cols}),
		mustNewElement(t, tag.BitsAllocated, []int{16}),
		mustNewElement(t, tag.BitsStored, []int{bitsStored}),
		mustNewElement(t, tag.HighBit, []int{bitsStored - 1}),
		mustNewElement(t, tag.PixelRepresentation, []int{pixelRepresentation}),
		mustNewElement(t, tag.SamplesPerPixel, []int{1}),
		mustNewElement(t, tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
	}
	if !fx.noLocation {
		elements = append(elements,
			mustNewElement(t, tag.SliceLocation, []string{locationText}))
	}
	elements = append(elements, mustNewElement(t, tag.PixelData, dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}))

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()

	if err := dicom.Write(f, dicom.Dataset{Elements: elements}); err != nil {
		t.Fatalf("Failed to write DICOM file %s: %v", path, err)
	}
	return path
}

// writeJunk writes a file that is not DICOM
func writeJunk(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("this is not a dicom file"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
