// Package config loads the gattd configuration file.
package config

import (
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// EnvLogLevel overrides the configured log level when set.
const EnvLogLevel = "GATTD_LOG_LEVEL"

// Config is the gattd configuration.
type Config struct {
	// Definition is the path of the XML service definition.
	Definition string `yaml:"definition"`
	// Values is the path of the persisted value file. Empty keeps
	// values in memory only.
	Values string `yaml:"values"`

	BaseHandle     uint16        `yaml:"base_handle"`
	NotifyInterval time.Duration `yaml:"notify_interval"`
	MTU            int           `yaml:"mtu"`
	LogLevel       string        `yaml:"log_level"`
	ValueCacheSize int           `yaml:"value_cache_size"`

	// Shim is the bridge command line. Empty serves stdin and stdout.
	Shim []string `yaml:"shim"`
}

// Default returns the configuration used for absent keys.
func Default() Config {
	return Config{
		NotifyInterval: 10 * time.Minute,
		MTU:            23,
		LogLevel:       "info",
		ValueCacheSize: 128,
	}
}

// Load reads the configuration file at path.
func Load(path string) (Config, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	return Parse(b)
}

// Parse decodes a YAML configuration over the defaults, applies the
// environment and validates the result.
func Parse(b []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.LogLevel = lvl
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Definition) == "":
		return errors.New("config: definition is required")
	case c.BaseHandle == 0xFFFF:
		return errors.New("config: base_handle 0xFFFF is reserved")
	case c.NotifyInterval <= 0:
		return errors.Errorf("config: notify_interval %v must be positive", c.NotifyInterval)
	case c.MTU < 23 || c.MTU > 517:
		return errors.Errorf("config: mtu %d out of range [23, 517]", c.MTU)
	case c.ValueCacheSize <= 0:
		return errors.Errorf("config: value_cache_size %d must be positive", c.ValueCacheSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, errors.Wrap(err, "config: log_level")
	}
	return lvl, nil
}
