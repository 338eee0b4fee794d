package reconstruction

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

// TestReconstructorBuildsSortedVolume loads five files where one lacks a
// SliceLocation and checks the resulting volume
func TestReconstructorBuildsSortedVolume(t *testing.T) {
	dir := t.TempDir()

	// write out of order so sorting is exercised
	for i, loc := range []float64{30, 10, 40, 20} {
		writeSlice(t, dir, fmt.Sprintf("IM%04d", i), newFixture(6, 4, loc))
	}
	scout := newFixture(6, 4, 0)
	scout.noLocation = true
	writeSlice(t, dir, "SCOUT", scout)

	var out bytes.Buffer
	r := NewReconstructor(&Params{InputDir: dir, Tolerance: 1e-3, Verbose: true, Out: &out})
	if err := r.Process(); err != nil {
		t.Fatalf("Process failed: %v\n%s", err, out.String())
	}

	m := r.GetMetrics()
	if m.Files != 5 || m.Loaded != 5 || m.Failed != 0 {
		t.Errorf("Unexpected load counts: %+v", m)
	}
	if m.Skipped != 1 || m.Used != 4 {
		t.Errorf("Expected 1 skipped and 4 used, got %d and %d", m.Skipped, m.Used)
	}

	slices := r.GetSlices()
	for i, want := range []float64{10, 20, 30, 40} {
		if slices[i].Location != want {
			t.Errorf("Slice %d: expected location %v, got %v", i, want, slices[i].Location)
		}
	}

	vol := r.GetVolume()
	rows, cols, n := vol.Shape()
	if rows != 6 || cols != 4 || n != 4 {
		t.Fatalf("Expected shape (6,4,4), got (%d,%d,%d)", rows, cols, n)
	}
	for i, s := range slices {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				if vol.At(y, x, i) != s.Pixels.At(y, x) {
					t.Fatalf("Voxel (%d,%d,%d) does not match its slice", y, x, i)
				}
			}
		}
	}

	// the lowest value sits in the slice at 10, the highest at 40
	if m.Min != 1000 || m.Max != 4000+23 {
		t.Errorf("Unexpected intensity range [%v, %v]", m.Min, m.Max)
	}
	if math.IsNaN(m.Mean) || m.Mean <= m.Min || m.Mean >= m.Max {
		t.Errorf("Unexpected mean %v", m.Mean)
	}

	geom, err := r.GetGeometry()
	if err != nil {
		t.Fatalf("GetGeometry failed: %v", err)
	}
	if geom.PixelSpacing != [2]float64{0.5, 0.5} || geom.Thickness != 2 {
		t.Errorf("Unexpected geometry %+v", geom)
	}

	if !strings.Contains(out.String(), "Skipped 1 files with no SliceLocation.") {
		t.Errorf("Expected skip count in output, got:\n%s", out.String())
	}
}

// TestReconstructorNoValidSlices verifies that nothing is built when
// every file is unusable
func TestReconstructorNoValidSlices(t *testing.T) {
	dir := t.TempDir()
	writeJunk(t, dir, "readme.txt")
	scout := newFixture(2, 2, 0)
	scout.noLocation = true
	writeSlice(t, dir, "SCOUT", scout)

	var out bytes.Buffer
	r := NewReconstructor(&Params{InputDir: dir, Out: &out})
	err := r.Process()
	if !errors.Is(err, ErrNoValidSlices) {
		t.Fatalf("Expected ErrNoValidSlices, got %v", err)
	}
	if r.GetVolume() != nil {
		t.Error("Expected no volume to be built")
	}
	if !strings.Contains(out.String(), "No valid slices found.") {
		t.Errorf("Expected message in output, got:\n%s", out.String())
	}

	m := r.GetMetrics()
	if m.Failed != 1 || m.Skipped != 1 || m.Used != 0 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestReconstructorEmptyDirectory(t *testing.T) {
	r := NewReconstructor(&Params{InputDir: t.TempDir(), Out: &bytes.Buffer{}})
	if err := r.Process(); !errors.Is(err, ErrNoValidSlices) {
		t.Errorf("Expected ErrNoValidSlices, got %v", err)
	}
}

func TestReconstructorHeterogeneousShapes(t *testing.T) {
	dir := t.TempDir()
	writeSlice(t, dir, "a", newFixture(4, 4, 1))
	writeSlice(t, dir, "b", newFixture(4, 5, 2))

	r := NewReconstructor(&Params{InputDir: dir, Out: &bytes.Buffer{}})
	if err := r.Process(); !errors.Is(err, ErrInconsistentShape) {
		t.Errorf("Expected ErrInconsistentShape, got %v", err)
	}
}

func TestReconstructorInconsistentGeometry(t *testing.T) {
	dir := t.TempDir()
	writeSlice(t, dir, "a", newFixture(3, 3, 1))
	thick := newFixture(3, 3, 2)
	thick.thickness = 5
	writeSlice(t, dir, "b", thick)

	r := NewReconstructor(&Params{InputDir: dir, Tolerance: 1e-3, Out: &bytes.Buffer{}})
	if err := r.Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, err := r.GetGeometry(); !errors.Is(err, ErrInconsistentGeometry) {
		t.Errorf("Expected ErrInconsistentGeometry, got %v", err)
	}
}

// TestNewReconstructor verifies that a new reconstructor is correctly initialized
func TestNewReconstructor(t *testing.T) {
	params := &Params{InputDir: "series-000001", Tolerance: 0.01}
	r := NewReconstructor(params)

	if r.params != params {
		t.Errorf("Expected params to be stored")
	}
	if r.out == nil {
		t.Errorf("Expected output writer to default to stdout")
	}
	if r.GetVolume() != nil || len(r.GetSlices()) != 0 {
		t.Errorf("Expected empty state before Process")
	}
}
