// Package config loads link and tool settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/OpenPSG/dgus"
	"gopkg.in/yaml.v3"
)

// Serial describes the port a display is attached to.
type Serial struct {
	Device      string        `toml:"device" yaml:"device"`
	Baud        int           `toml:"baud" yaml:"baud"`
	ReadTimeout time.Duration `toml:"read_timeout" yaml:"read_timeout"`
}

// Protocol selects frame options.
type Protocol struct {
	CRC             bool `toml:"crc" yaml:"crc"`
	AccumulatorSize int  `toml:"accumulator_size" yaml:"accumulator_size"`
}

// Log selects the log level.
type Log struct {
	Level string `toml:"level" yaml:"level"`
}

// Capture names the file traffic is recorded to. Empty disables capture.
type Capture struct {
	Path string `toml:"path" yaml:"path"`
}

// Config is the complete settings file. TOML and YAML share one nested
// layout:
//
//	[serial]
//	device = "/dev/ttyUSB0"
//	baud = 115200
//	read_timeout = "100ms"
//
//	[protocol]
//	crc = false
//	accumulator_size = 255
//
//	[log]
//	level = "info"
//
//	[capture]
//	path = ""
type Config struct {
	Serial   Serial   `toml:"serial" yaml:"serial"`
	Protocol Protocol `toml:"protocol" yaml:"protocol"`
	Log      Log      `toml:"log" yaml:"log"`
	Capture  Capture  `toml:"capture" yaml:"capture"`
}

// Default returns the settings of a stock display: 115200 baud, no CRC.
func Default() Config {
	return Config{
		Serial: Serial{
			Device:      "/dev/ttyUSB0",
			Baud:        115200,
			ReadTimeout: 100 * time.Millisecond,
		},
		Protocol: Protocol{
			CRC:             false,
			AccumulatorSize: dgus.MaxFrameSize,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, or .yaml/.yml.
func Load(path string) (Config, error) {
	var (
		cfg Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		cfg, err = loadTOML(path)
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	default:
		return Config{}, fmt.Errorf("load config %q: unsupported extension", path)
	}
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %q: %w", path, err)
	}
	return cfg, nil
}

func loadTOML(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	for _, field := range []struct {
		key []string
		val *string
	}{
		{[]string{"serial", "device"}, &cfg.Serial.Device},
		{[]string{"log", "level"}, &cfg.Log.Level},
		{[]string{"capture", "path"}, &cfg.Capture.Path},
	} {
		if meta.IsDefined(field.key...) {
			*field.val = strings.TrimSpace(*field.val)
		}
	}
	return cfg, nil
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.Serial.Device = strings.TrimSpace(cfg.Serial.Device)
	cfg.Log.Level = strings.TrimSpace(cfg.Log.Level)
	cfg.Capture.Path = strings.TrimSpace(cfg.Capture.Path)
	return cfg, nil
}

// Validate reports the first setting that cannot drive a link.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Serial.Device) == "" {
		return errors.New("serial device is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout %s", c.Serial.ReadTimeout)
	}
	least := dgus.MinAccumulatorSize
	if c.Protocol.CRC {
		least += dgus.CRCSize
	}
	if c.Protocol.AccumulatorSize < least || c.Protocol.AccumulatorSize > dgus.MaxFrameSize {
		return fmt.Errorf("accumulator size %d outside [%d, %d]", c.Protocol.AccumulatorSize, least, dgus.MaxFrameSize)
	}
	return nil
}
