package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"retinamap/pkg/config"
	"retinamap/pkg/retina"
	"retinamap/pkg/visualization"
)

func main() {
	// Parse command line arguments; flags override the config file.
	configPath := flag.String("config", "retinamap.yaml", "Path to YAML configuration file")
	samplePath := flag.String("samples", "", "CSV of (x, y, count) counting-frame measurements")
	outlinePath := flag.String("outline", "", "CSV of ordered (x, y) landmark outline points")
	lambda := flag.Float64("lambda", -1, "Thin-plate smoothing parameter (>= 0); negative keeps the config value")
	gridRes := flag.Int("res", 0, "Output grid resolution per axis; 0 keeps the config value")
	rotation := flag.Float64("rotation", 0, "Screen rotation of the projection in degrees")
	extrapolate := flag.Bool("extrapolate", false, "Evaluate the surface outside the sample convex hull")
	render := flag.String("render", "", "Write a density map PNG to this path")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *samplePath != "" {
		cfg.Input.Samples = *samplePath
	}
	if *outlinePath != "" {
		cfg.Input.Outline = *outlinePath
	}
	if *lambda >= 0 {
		cfg.Fit.Lambda = *lambda
	}
	if *gridRes > 0 {
		cfg.Fit.GridResolution = *gridRes
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rotation":
			cfg.Projection.RotationDegrees = *rotation
		case "extrapolate":
			cfg.Fit.Extrapolate = *extrapolate
		case "render":
			cfg.Output.RenderPath = *render
		}
	})

	if cfg.Input.Samples == "" || cfg.Input.Outline == "" {
		flag.Usage()
		os.Exit(1)
	}

	params, err := cfg.Params()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("RETINAL FLATMOUNT DENSITY MAPPING")
	fmt.Println("Hemisphere reconstruction, azimuthal projection and thin-plate interpolation")
	fmt.Println("================================")

	builder := retina.NewBuilder(params)

	fmt.Println("Starting construction...")
	startTime := time.Now()
	result, err := builder.Build()
	if err != nil {
		log.Fatalf("Construction failed: %v", err)
	}
	elapsed := time.Since(startTime)

	surface := result.Surface()
	fmt.Printf("\nConstruction completed successfully in %.2f seconds!\n\n", elapsed.Seconds())

	fmt.Printf("Density surface:\n")
	fmt.Printf("================\n")
	fmt.Printf("Grid resolution: %dx%d\n", surface.Res, surface.Res)
	fmt.Printf("Bounding radius: %.2f (hemisphere radii)\n", surface.MaxRadius)
	fmt.Printf("Extrapolation: %v\n", surface.Extrapolated)
	fmt.Printf("Samples: %d, outline points: %d\n", len(result.Samples()), len(result.Outline()))

	metricName := "in-sample"
	if params.Metric != 0 {
		metricName = "leave-one-out"
	}
	fmt.Printf("\nFit quality (%s):\n", metricName)
	fmt.Printf("Root Mean Square Error (RMSE): %.6f\n", surface.Quality.RMSE)
	fmt.Printf("Coefficient of determination (R^2): %.4f\n", surface.Quality.RSquared)

	if cfg.Output.RenderPath != "" {
		fmt.Printf("\nRendering density map to: %s\n", cfg.Output.RenderPath)
		if err := visualization.RenderPNG(surface, result.Outline(), cfg.Output.RenderPath); err != nil {
			log.Fatalf("Rendering failed: %v", err)
		}
	}

	fmt.Println("\nNormalized coordinate audit written next to the sample input.")
}
