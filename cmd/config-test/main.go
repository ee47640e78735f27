// Command config-test loads a configuration from either backend,
// validates it, and prints what a filmstrip run would use.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/coastcube/filmstrip/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if (*yamlFile == "") == (*sqliteFile == "") {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> | -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	var provider config.ConfigProvider
	if *yamlFile != "" {
		fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
		provider = config.NewYAMLProvider(*yamlFile)
	} else {
		fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
		var err error
		provider, err = config.NewSQLiteProvider(*sqliteFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
			os.Exit(1)
		}
	}
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	failures := 0

	if err := cfg.Analysis.Validate(); err != nil {
		fmt.Printf("✗ Analysis parameters invalid: %v\n", err)
		failures++
	} else {
		start, end := cfg.Analysis.TimeBounds()
		fmt.Println("✓ Analysis parameters valid")
		fmt.Printf("  Output:     %s\n", cfg.Analysis.OutputName)
		fmt.Printf("  Range:      %s to %s, step %s\n",
			start.Format("2006-01-02"), end.Format("2006-01-02"), cfg.Analysis.TimeStep.StepLabel())
		fmt.Printf("  Tide range: %.2f to %.2f\n", cfg.Analysis.TideRange[0], cfg.Analysis.TideRange[1])
		fmt.Printf("  Resolution: %g x %g degrees\n", cfg.Analysis.Resolution[0], cfg.Analysis.Resolution[1])
		fmt.Printf("  Max cloud:  %.2f\n", cfg.Analysis.MaxCloud)
		if cfg.Analysis.LS7SLCOff {
			fmt.Printf("  Including Landsat 7 SLC-off scenes\n")
		}
	}

	if err := cfg.Catalog.Validate(); err != nil {
		fmt.Printf("✗ Catalog configuration invalid: %v\n", err)
		failures++
	} else {
		fmt.Println("✓ Catalog configuration valid")
		if cfg.Catalog.ConnectionString != "" {
			fmt.Printf("  Backend:   Postgres (%s)\n", cfg.Catalog.ConnectionString)
		} else {
			fmt.Printf("  Backend:   SQLite (%s)\n", cfg.Catalog.SQLitePath)
		}
		fmt.Printf("  Band root: %s\n", cfg.Catalog.BandRoot)
	}

	if cfg.Selector != nil {
		fmt.Printf("✓ Selection server configured on %s:%d\n", cfg.Selector.ListenAddr, cfg.Selector.Port)
	} else {
		fmt.Println("- Selection server not configured; study areas must come from -aoi files")
	}

	if failures > 0 {
		os.Exit(1)
	}
}
