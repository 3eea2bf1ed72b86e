// Package config defines the configuration of an MMU adapter process.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/a8m/envsubst"
	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
)

// Defaults applied by Validate.
const (
	DefaultName                 = "GoAdapter"
	DefaultLanguage             = "GO"
	DefaultLogLevel             = "INFO"
	DefaultSettleDelay          = 500 * time.Millisecond
	DefaultRegisterRetryInitial = time.Second
	DefaultRegisterRetryMax     = 30 * time.Second
	DefaultMaxArtifactSize      = "512MB"
)

// Config configures an adapter. Command line flags override values read from a file.
type Config struct {
	AdapterAddress       string   `json:"adapter_address"`
	RegisterAddress      string   `json:"register_address"`
	MMUPath              string   `json:"mmu_path"`
	StagingDir           string   `json:"staging_dir,omitempty"`
	Languages            []string `json:"languages,omitempty"`
	Name                 string   `json:"name,omitempty"`
	ID                   string   `json:"id,omitempty"`
	LogLevel             string   `json:"log_level,omitempty"`
	LogFile              string   `json:"log_file,omitempty"`
	SettleDelay          Duration `json:"settle_delay,omitempty"`
	RegisterRetryInitial Duration `json:"register_retry_initial,omitempty"`
	RegisterRetryMax     Duration `json:"register_retry_max,omitempty"`
	// MaxArtifactSize bounds extracted artifacts, e.g. "512MB". Sizes use binary units.
	MaxArtifactSize string `json:"max_artifact_size,omitempty"`

	// ConfigFilePath is the file the config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// Duration is a time.Duration written as a string such as "500ms" in config files.
type Duration time.Duration

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON parses a duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return errors.Wrap(err, "duration must be a string such as \"500ms\"")
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Read reads a config from the given file. Environment variables referenced as $VAR or ${VAR}
// are expanded before parsing.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file
// the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	return &cfg, nil
}

// Validate fills in defaults and reports the first invalid field.
func (c *Config) Validate() error {
	if c.AdapterAddress == "" {
		return errors.New("adapter_address is required")
	}
	if _, err := mmi.ParseIPAddress(c.AdapterAddress); err != nil {
		return errors.Wrap(err, "invalid adapter_address")
	}
	if c.RegisterAddress == "" {
		return errors.New("register_address is required")
	}
	if _, err := mmi.ParseIPAddress(c.RegisterAddress); err != nil {
		return errors.Wrap(err, "invalid register_address")
	}
	if c.MMUPath == "" {
		return errors.New("mmu_path is required")
	}

	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{DefaultLanguage}
	}
	for i, language := range c.Languages {
		if strings.TrimSpace(language) == "" {
			return errors.Errorf("languages[%d] is empty", i)
		}
		c.Languages[i] = strings.ToUpper(strings.TrimSpace(language))
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, err := logging.LevelFromString(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log_level")
	}

	if c.SettleDelay < 0 || c.RegisterRetryInitial < 0 || c.RegisterRetryMax < 0 {
		return errors.New("durations must not be negative")
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = Duration(DefaultSettleDelay)
	}
	if c.RegisterRetryInitial == 0 {
		c.RegisterRetryInitial = Duration(DefaultRegisterRetryInitial)
	}
	if c.RegisterRetryMax == 0 {
		c.RegisterRetryMax = Duration(DefaultRegisterRetryMax)
	}
	if c.MaxArtifactSize == "" {
		c.MaxArtifactSize = DefaultMaxArtifactSize
	}
	if _, err := c.MaxArtifactBytes(); err != nil {
		return err
	}
	if c.RegisterRetryInitial > c.RegisterRetryMax {
		return errors.Errorf("register_retry_initial %s exceeds register_retry_max %s",
			time.Duration(c.RegisterRetryInitial), time.Duration(c.RegisterRetryMax))
	}
	return nil
}

// MaxArtifactBytes returns MaxArtifactSize in bytes.
func (c *Config) MaxArtifactBytes() (int64, error) {
	size, err := units.RAMInBytes(c.MaxArtifactSize)
	if err != nil {
		return 0, errors.Wrap(err, "invalid max_artifact_size")
	}
	if size <= 0 {
		return 0, errors.Errorf("max_artifact_size %q must be positive", c.MaxArtifactSize)
	}
	return size, nil
}
