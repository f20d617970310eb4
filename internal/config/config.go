// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/iwvelando/nitrogen-response/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for nitrogen-response.
type Configuration struct {
	Dataset DatasetConfig `yaml:"dataset"`
	Chart   ChartConfig   `yaml:"chart"`
	Pricing PricingConfig `yaml:"pricing"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
}

// DatasetConfig locates the simulations table.
type DatasetConfig struct {
	Path string `yaml:"path"`
}

// ChartConfig controls rendering and where artifacts are written.
type ChartConfig struct {
	Format       string `yaml:"format"` // html, svg, png
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	Dir          string `yaml:"dir"`
	YieldPath    string `yaml:"yieldPath,omitempty"`    // defaults to <dir>/fig.<format>
	EconomicPath string `yaml:"economicPath,omitempty"` // defaults to <dir>/fig2.<format>
}

// PricingConfig holds the prices the CLI falls back to for economic curves.
type PricingConfig struct {
	GrainPrice    float64 `yaml:"grainPrice"`
	NitrogenPrice float64 `yaml:"nitrogenPrice"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// Default returns the configuration used when no file is supplied.
func Default() *Configuration {
	v := newViper()
	var configuration Configuration
	// Decoding the registered defaults cannot fail.
	_ = v.Unmarshal(&configuration)
	return &configuration
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there on top of the defaults. An empty path loads defaults
// and environment overrides only.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &configuration, nil
}

// Validate checks the configuration for unsupported or out-of-range values.
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.Dataset.Path) == "" {
		return fmt.Errorf("dataset path must not be empty")
	}
	if err := validation.ValidateChartFormat(c.Chart.Format); err != nil {
		return err
	}
	if err := validation.ValidateChartSize(c.Chart.Width, c.Chart.Height); err != nil {
		return err
	}
	if err := validation.ValidatePrices(c.Pricing.GrainPrice, c.Pricing.NitrogenPrice); err != nil {
		return err
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return err
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("dataset.path", constants.DefaultDatasetPath)
	v.SetDefault("chart.format", constants.DefaultChartFormat)
	v.SetDefault("chart.width", constants.DefaultChartWidth)
	v.SetDefault("chart.height", constants.DefaultChartHeight)
	v.SetDefault("chart.dir", constants.DefaultArtifactDir)
	v.SetDefault("chart.yieldPath", "")
	v.SetDefault("chart.economicPath", "")
	v.SetDefault("pricing.grainPrice", constants.DefaultGrainPrice)
	v.SetDefault("pricing.nitrogenPrice", constants.DefaultNitrogenPrice)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	return v
}
