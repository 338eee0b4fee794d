package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dicomvolume/internal/models"
	"dicomvolume/pkg/config"
	"dicomvolume/pkg/reconstruction"
	"dicomvolume/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "dicomvolume.yaml", "YAML configuration file")
	envFile := flag.String("env", ".env", "Environment file with DICOMVOLUME_* overrides")
	inputDir := flag.String("input", "", "Directory containing the DICOM series (overrides config)")
	mode := flag.String("mode", "", "Render mode: orthogonal, volumetric or both (overrides config)")
	outputDir := flag.String("output", "", "Directory for rendered figures (overrides config)")
	extractSlices := flag.Bool("extract-slices", false, "Save every slice along all three axes")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := applyFlags(cfg, *inputDir, *mode, *outputDir, *extractSlices); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("CT DICOM SERIES TO 3D VOLUME")
	fmt.Println("================================")

	params := &reconstruction.Params{
		InputDir:  cfg.Input.Dir,
		Tolerance: cfg.Validation.Tolerance,
		Verbose:   cfg.Output.Verbose,
		Out:       os.Stdout,
	}

	reconstructor := reconstruction.NewReconstructor(params)

	startTime := time.Now()
	if err := reconstructor.Process(); err != nil {
		if errors.Is(err, reconstruction.ErrNoValidSlices) {
			os.Exit(1)
		}
		log.Fatalf("Reconstruction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	metrics := reconstructor.GetMetrics()
	vol := reconstructor.GetVolume()
	fmt.Printf("\nVolume built in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("Files: %d read, %d loaded, %d failed\n", metrics.Files, metrics.Loaded, metrics.Failed)
	fmt.Printf("Slices: %d used, %d skipped\n", metrics.Used, metrics.Skipped)
	fmt.Printf("Shape: %d x %d x %d\n", vol.Rows, vol.Cols, vol.Slices)
	fmt.Printf("Intensity: min %.1f, max %.1f, mean %.1f, std dev %.1f\n",
		metrics.Min, metrics.Max, metrics.Mean, metrics.StdDev)

	// Geometry is required for the orthogonal views only; the volumetric
	// rendering falls back to square pixels without it.
	var geom *models.Geometry
	g, geomErr := reconstructor.GetGeometry()
	if geomErr == nil {
		geom = &g
		fmt.Printf("Pixel spacing: %g x %g mm, slice thickness: %g mm\n",
			g.PixelSpacing[0], g.PixelSpacing[1], g.Thickness)
	}

	viewer := visualization.NewViewer(vol, geom)

	if cfg.Render.Mode == config.ModeOrthogonal || cfg.Render.Mode == config.ModeBoth {
		if geomErr != nil {
			log.Fatalf("Cannot render orthogonal views: %v", geomErr)
		}
		path := filepath.Join(cfg.Render.OutputDir, "orthogonal_views.png")
		if err := viewer.RenderOrthogonal(path, cfg.Render.CellSize); err != nil {
			log.Fatalf("Failed to render orthogonal views: %v", err)
		}
		fmt.Printf("Orthogonal views saved to: %s\n", path)
	}

	if cfg.Render.Mode == config.ModeVolumetric || cfg.Render.Mode == config.ModeBoth {
		axis, err := visualization.ParseAxis(cfg.Render.ProjectionAxis)
		if err != nil {
			log.Fatalf("Invalid projection axis: %v", err)
		}
		path := filepath.Join(cfg.Render.OutputDir, "volume.png")
		if err := viewer.RenderVolume(path, axis, cfg.Render.CellSize); err != nil {
			log.Fatalf("Failed to render volume: %v", err)
		}
		fmt.Printf("Volume rendering saved to: %s\n", path)
	}

	if cfg.Output.ExtractSlices {
		fmt.Println("\nExtracting slices along all axes...")
		slicesPath := filepath.Join(cfg.Render.OutputDir, cfg.Output.SlicesDir)
		for _, axis := range visualization.Axes {
			axisDir := filepath.Join(slicesPath, string(axis))
			fmt.Printf("Saving %s slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s slices: %v", axis, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}
}

// loadConfig reads the YAML file, then the .env file, then applies
// environment overrides
func loadConfig(configPath, envFile string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with the command line values that were given
func applyFlags(cfg *config.Config, inputDir, mode, outputDir string, extractSlices bool) error {
	if inputDir != "" {
		cfg.Input.Dir = inputDir
	}
	if mode != "" {
		cfg.Render.Mode = strings.ToLower(mode)
	}
	if outputDir != "" {
		cfg.Render.OutputDir = outputDir
	}
	if extractSlices {
		cfg.Output.ExtractSlices = true
	}
	return cfg.Validate()
}
