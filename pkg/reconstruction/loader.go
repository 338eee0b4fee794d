package reconstruction

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"gonum.org/v1/gonum/mat"

	"dicomvolume/internal/models"
)

// LoadFailure records a file that could not be turned into a slice
type LoadFailure struct {
	Path string
	Err  error
}

// LoadResult is the outcome of reading a series directory
type LoadResult struct {
	// Dir is the absolute directory that was read
	Dir string

	// Files is the number of regular files found
	Files int

	// Slices holds the parsed slices in directory order
	Slices []*models.Slice

	// Failures lists the files that were skipped
	Failures []LoadFailure
}

// LoadDir parses every regular file directly inside dir as DICOM.
// A file that fails to parse is reported to out and skipped; only a
// problem with the directory itself is returned as an error.
func LoadDir(dir string, out io.Writer, verbose bool) (LoadResult, error) {
	var result LoadResult

	fullPath, err := filepath.Abs(dir)
	if err != nil {
		return result, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	result.Dir = fullPath
	fmt.Fprintf(out, "Full path: %s\n", fullPath)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return result, fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(fullPath, entry.Name())
		if !isRegularFile(entry, path) {
			continue
		}
		result.Files++

		if verbose {
			fmt.Fprintf(out, "Loading: %s\n", path)
		}

		slice, err := parseSlice(path)
		if err != nil {
			fmt.Fprintf(out, "Error loading %s: %v\n", path, err)
			result.Failures = append(result.Failures, LoadFailure{Path: path, Err: err})
			continue
		}

		if verbose && slice.HasLocation {
			fmt.Fprintf(out, "SliceLocation: %g\n", slice.Location)
		}
		result.Slices = append(result.Slices, slice)
	}

	fmt.Fprintf(out, "File count: %d\n", len(result.Slices))
	return result, nil
}

// isRegularFile reports whether entry is a regular file, following
// symlinks to their target
func isRegularFile(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// parseSlice reads a single DICOM file into a slice record
func parseSlice(path string) (*models.Slice, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, err
	}

	pixels, err := pixelGrid(ds)
	if err != nil {
		return nil, err
	}

	slice := &models.Slice{
		Filename: path,
		Pixels:   pixels,
	}

	// a SliceLocation that is not a number counts as absent
	if v, ok, err := floatValues(ds, tag.SliceLocation); err == nil && ok {
		slice.Location = v[0]
		slice.HasLocation = true
	}

	if v, ok, err := floatValues(ds, tag.PixelSpacing); err != nil {
		return nil, fmt.Errorf("PixelSpacing: %w", err)
	} else if ok && len(v) >= 2 {
		slice.PixelSpacing = [2]float64{v[0], v[1]}
		slice.HasPixelSpacing = true
	}

	if v, ok, err := floatValues(ds, tag.SliceThickness); err != nil {
		return nil, fmt.Errorf("SliceThickness: %w", err)
	} else if ok {
		slice.Thickness = v[0]
		slice.HasThickness = true
	}

	if v, ok, err := floatValues(ds, tag.InstanceNumber); err == nil && ok {
		slice.InstanceNumber = int(v[0])
	}

	return slice, nil
}

// pixelGrid copies the first sample of every pixel of the first frame
func pixelGrid(ds dicom.Dataset) (*mat.Dense, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, ErrNoPixelData
	}

	info, ok := el.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 {
		return nil, ErrNoPixelData
	}

	f := info.Frames[0]
	if f.Encapsulated || f.NativeData == nil {
		return nil, fmt.Errorf("encapsulated pixel data is not supported")
	}

	native := f.NativeData
	rows, cols := native.Rows(), native.Cols()
	if rows == 0 || cols == 0 {
		return nil, ErrNoPixelData
	}

	// the decoder always returns unsigned samples
	signed := intValue(ds, tag.PixelRepresentation, 0) == 1
	bits := intValue(ds, tag.BitsStored, native.BitsPerSample())
	if bits <= 0 || bits > 32 {
		bits = native.BitsPerSample()
	}

	grid := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			samples, err := native.GetPixel(x, y)
			if err != nil {
				return nil, fmt.Errorf("pixel (%d,%d): %w", x, y, err)
			}
			v := int64(samples[0])
			if signed {
				v = signExtend(v, bits)
			}
			grid.Set(y, x, float64(v))
		}
	}
	return grid, nil
}

// signExtend interprets the low bits of v as a two's complement value
func signExtend(v int64, bits int) int64 {
	shift := 64 - bits
	return v << shift >> shift
}

// intValue returns the first value of an integer element (US, SS, UL)
// or def when it is absent
func intValue(ds dicom.Dataset, t tag.Tag, def int) int {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return def
	}
	ints, ok := el.Value.GetValue().([]int)
	if !ok || len(ints) == 0 {
		return def
	}
	return ints[0]
}

// floatValues parses a numeric string element (DS or IS). The bool
// result is false when the element is absent or empty.
func floatValues(ds dicom.Dataset, t tag.Tag) ([]float64, bool, error) {
	el, err := ds.FindElementByTag(t)
	if errors.Is(err, dicom.ErrorElementNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	strs, ok := el.Value.GetValue().([]string)
	if !ok {
		return nil, false, fmt.Errorf("unexpected value type %v", el.Value.ValueType())
	}

	values := make([]float64, 0, len(strs))
	for _, s := range strs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false, err
		}
		values = append(values, f)
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	return values, true, nil
}
