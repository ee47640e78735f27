// Command config-convert turns a YAML configuration file into the SQLite
// configuration database used by the sqlite config backend.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coastcube/filmstrip/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	fmt.Printf("Loading YAML configuration...\n")
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	configData, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(filepath.Dir(*sqliteFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating target directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Creating SQLite database...\n")
	provider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	if err := provider.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading configuration into SQLite database...\n")
	if err := provider.SaveConfig(configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func printConfigSummary(configData *config.ConfigData) {
	a := configData.Analysis
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("Analysis:\n")
	fmt.Printf("  - Output:     %s\n", a.OutputName)
	fmt.Printf("  - Range:      %s to %s, step %s\n", a.TimeStart, a.TimeEnd, a.TimeStep.StepLabel())
	fmt.Printf("  - Tide range: %.2f to %.2f\n", a.TideRange[0], a.TideRange[1])
	fmt.Printf("  - Max cloud:  %.2f\n", a.MaxCloud)

	fmt.Printf("\nCatalog:\n")
	if configData.Catalog.ConnectionString != "" {
		fmt.Printf("  - Postgres: %s\n", configData.Catalog.ConnectionString)
	}
	if configData.Catalog.SQLitePath != "" {
		fmt.Printf("  - SQLite: %s\n", configData.Catalog.SQLitePath)
	}
	fmt.Printf("  - Band root: %s\n", configData.Catalog.BandRoot)

	if configData.Selector != nil {
		fmt.Printf("\nSelector:\n")
		fmt.Printf("  - Listen: %s:%d\n", configData.Selector.ListenAddr, configData.Selector.Port)
	}
}
