package reconstruction

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dicomvolume/internal/models"
)

// Metrics summarizes a reconstruction run
type Metrics struct {
	// Files is the number of regular files found in the input directory
	Files int

	// Loaded is the number of files parsed as DICOM slices
	Loaded int

	// Failed is the number of files that could not be parsed
	Failed int

	// Skipped is the number of parsed slices without a SliceLocation
	Skipped int

	// Used is the number of slices stacked into the volume
	Used int

	// Intensity statistics over every voxel of the volume
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Params holds the reconstruction parameters
type Params struct {
	// InputDir is the directory containing the DICOM series. Relative
	// paths are resolved against the working directory.
	InputDir string

	// Tolerance is the allowed spread of pixel spacing and slice
	// thickness across the series
	Tolerance float64

	// Verbose prints a line per file while loading
	Verbose bool

	// Out receives progress output. Defaults to os.Stdout.
	Out io.Writer
}

// Reconstructor turns a directory of CT DICOM slices into a volume.
//
// The reconstruction process consists of several steps:
// 1. Loading every file of the directory as DICOM
// 2. Dropping slices without a SliceLocation and sorting the rest by it
// 3. Stacking the sorted pixel grids into a 3D volume
// 4. Calculating intensity statistics
type Reconstructor struct {
	params *Params
	out    io.Writer

	load    LoadResult
	slices  []*models.Slice
	skipped int

	volume  *models.Volume
	metrics Metrics
}

// NewReconstructor creates a new reconstructor instance with the provided parameters.
func NewReconstructor(params *Params) *Reconstructor {
	out := params.Out
	if out == nil {
		out = os.Stdout
	}
	return &Reconstructor{
		params: params,
		out:    out,
	}
}

// Process runs the complete reconstruction pipeline. It returns
// ErrNoValidSlices without building anything when filtering leaves no
// slice.
func (r *Reconstructor) Process() error {
	fmt.Fprintln(r.out, "Step 1: Loading DICOM files...")
	load, err := LoadDir(r.params.InputDir, r.out, r.params.Verbose)
	if err != nil {
		return fmt.Errorf("failed to load slices: %w", err)
	}
	r.load = load
	r.metrics.Files = load.Files
	r.metrics.Loaded = len(load.Slices)
	r.metrics.Failed = len(load.Failures)

	fmt.Fprintln(r.out, "Step 2: Filtering and sorting slices by SliceLocation...")
	r.slices, r.skipped = FilterAndSort(load.Slices)
	r.metrics.Skipped = r.skipped
	fmt.Fprintf(r.out, "Skipped %d files with no SliceLocation.\n", r.skipped)

	if len(r.slices) == 0 {
		fmt.Fprintln(r.out, "No valid slices found.")
		return ErrNoValidSlices
	}
	r.metrics.Used = len(r.slices)

	fmt.Fprintln(r.out, "Step 3: Building 3D volume...")
	vol, err := BuildVolume(r.slices)
	if err != nil {
		return fmt.Errorf("failed to build volume: %w", err)
	}
	r.volume = vol
	fmt.Fprintf(r.out, "Volume shape: %d x %d x %d\n", vol.Rows, vol.Cols, vol.Slices)

	fmt.Fprintln(r.out, "Step 4: Calculating intensity statistics...")
	r.calculateMetrics()

	return nil
}

func (r *Reconstructor) calculateMetrics() {
	data := r.volume.Data
	r.metrics.Min = floats.Min(data)
	r.metrics.Max = floats.Max(data)
	r.metrics.Mean, r.metrics.StdDev = stat.MeanStdDev(data, nil)
}

// GetMetrics returns the statistics of the last run
func (r *Reconstructor) GetMetrics() Metrics {
	return r.metrics
}

// GetVolume returns the reconstructed volume, nil before a successful Process
func (r *Reconstructor) GetVolume() *models.Volume {
	return r.volume
}

// GetSlices returns the filtered slices in volume order
func (r *Reconstructor) GetSlices() []*models.Slice {
	return r.slices
}

// GetLoadResult returns what the loader saw, including failed files
func (r *Reconstructor) GetLoadResult() LoadResult {
	return r.load
}

// GetGeometry returns the series pixel spacing and slice thickness,
// checking that all used slices share them
func (r *Reconstructor) GetGeometry() (models.Geometry, error) {
	return CheckGeometry(r.slices, r.params.Tolerance)
}
