package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/nitrogen-response/internal/config"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address           string               `yaml:"address"`
	MaxDatasetSize    string               `yaml:"maxDatasetSize"`
	ArtifactURLPrefix string               `yaml:"artifactURLPrefix"`
	Logging           config.LoggingConfig `yaml:"logging"`
	datasetSizeBytes  int64
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:           constants.DefaultServerAddress,
		MaxDatasetSize:    fmt.Sprintf("%d", constants.DefaultMaxDatasetSizeBytes),
		ArtifactURLPrefix: constants.DefaultArtifactURLPrefix,
		datasetSizeBytes:  constants.DefaultMaxDatasetSizeBytes,
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatasetSizeBytes returns the largest dataset, in bytes, read per request.
func (c *Config) DatasetSizeBytes() int64 {
	return c.datasetSizeBytes
}

// SetDatasetSizeBytes overrides the configured dataset size limit.
func (c *Config) SetDatasetSizeBytes(size int64) {
	if size > 0 {
		c.datasetSizeBytes = size
		c.MaxDatasetSize = fmt.Sprintf("%d", size)
	}
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}

	prefix := strings.TrimSpace(c.ArtifactURLPrefix)
	if prefix == "" {
		prefix = constants.DefaultArtifactURLPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	c.ArtifactURLPrefix = prefix

	size, err := ParseSize(c.MaxDatasetSize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxDatasetSizeBytes
	}
	c.datasetSizeBytes = size
	return nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "64M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxDatasetSizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var shift uint
	switch unitPart {
	case "", "B":
		shift = 0
	case "K", "KB":
		shift = 10
	case "M", "MB":
		shift = 20
	case "G", "GB":
		shift = 30
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	if n > math.MaxInt64>>shift {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n << shift, nil
}
