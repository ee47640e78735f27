package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Analysis AnalysisYAML  `yaml:"analysis"`
		Catalog  CatalogYAML   `yaml:"catalog"`
		Selector *SelectorYAML `yaml:"selector,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Analysis: AnalysisData{
			OutputName: yamlConfig.Analysis.OutputName,
			TimeStart:  yamlConfig.Analysis.TimeStart,
			TimeEnd:    yamlConfig.Analysis.TimeEnd,
			TimeStep: TimeStepData{
				Years:  yamlConfig.Analysis.TimeStep.Years,
				Months: yamlConfig.Analysis.TimeStep.Months,
			},
			TideRange:    yamlConfig.Analysis.TideRange,
			Resolution:   yamlConfig.Analysis.Resolution,
			MaxCloud:     yamlConfig.Analysis.MaxCloud,
			LS7SLCOff:    yamlConfig.Analysis.LS7SLCOff,
			SizeLimitKm2: yamlConfig.Analysis.SizeLimitKm2,
			OutputDir:    yamlConfig.Analysis.OutputDir,
		},
		Catalog: CatalogData{
			ConnectionString: yamlConfig.Catalog.ConnectionString,
			SQLitePath:       yamlConfig.Catalog.SQLitePath,
			BandRoot:         yamlConfig.Catalog.BandRoot,
		},
	}

	if yamlConfig.Selector != nil {
		config.Selector = &SelectorData{
			ListenAddr: yamlConfig.Selector.ListenAddr,
			Port:       yamlConfig.Selector.Port,
		}
	}

	y.config = config
	return config, nil
}

// GetAnalysis returns the analysis parameters
func (y *YAMLProvider) GetAnalysis() (*AnalysisData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Analysis, nil
}

// GetCatalogConfig returns the scene catalog configuration
func (y *YAMLProvider) GetCatalogConfig() (*CatalogData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Catalog, nil
}

// GetSelectorConfig returns the area-selection server configuration
func (y *YAMLProvider) GetSelectorConfig() (*SelectorData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Selector, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the on-disk format
type AnalysisYAML struct {
	OutputName   string       `yaml:"output-name"`
	TimeStart    string       `yaml:"time-start"`
	TimeEnd      string       `yaml:"time-end"`
	TimeStep     TimeStepYAML `yaml:"time-step"`
	TideRange    [2]float64   `yaml:"tide-range"`
	Resolution   [2]float64   `yaml:"resolution"`
	MaxCloud     float64      `yaml:"max-cloud"`
	LS7SLCOff    bool         `yaml:"ls7-slc-off"`
	SizeLimitKm2 float64      `yaml:"size-limit-km2,omitempty"`
	OutputDir    string       `yaml:"output-dir,omitempty"`
}

type TimeStepYAML struct {
	Years  int `yaml:"years,omitempty"`
	Months int `yaml:"months,omitempty"`
}

type CatalogYAML struct {
	ConnectionString string `yaml:"connection-string,omitempty"`
	SQLitePath       string `yaml:"sqlite-path,omitempty"`
	BandRoot         string `yaml:"band-root"`
}

type SelectorYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}
