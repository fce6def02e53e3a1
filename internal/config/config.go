package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Input workbook
	DataPath  string `mapstructure:"data_path" yaml:"data_path" validate:"required"`
	SheetName string `mapstructure:"sheet_name" yaml:"sheet_name"`

	// Dashboard server
	ListenAddr         string  `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required,hostname_port"`
	ShutdownTimeoutSec int     `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec" validate:"gte=1"`
	RateLimitRPS       float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=0"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"omitempty,oneof=json console"`
	Debug     bool   `mapstructure:"debug" yaml:"debug"`
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (c *Global) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

var validate = validator.New()

// Validate checks field constraints and reports every failing key.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", keyOf(fe.StructField()), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_path", "sheet_name",
	"listen_addr", "shutdown_timeout_sec", "rate_limit_rps", "rate_limit_burst",
	"log_level", "log_format", "debug",
}

func keyOf(field string) string {
	switch field {
	case "DataPath":
		return "data_path"
	case "SheetName":
		return "sheet_name"
	case "ListenAddr":
		return "listen_addr"
	case "ShutdownTimeoutSec":
		return "shutdown_timeout_sec"
	case "RateLimitRPS":
		return "rate_limit_rps"
	case "RateLimitBurst":
		return "rate_limit_burst"
	case "LogLevel":
		return "log_level"
	case "LogFormat":
		return "log_format"
	}
	return strings.ToLower(field)
}

// Get returns the string form of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "data_path":
		return c.DataPath, nil
	case "sheet_name":
		return c.SheetName, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "shutdown_timeout_sec":
		return strconv.Itoa(c.ShutdownTimeoutSec), nil
	case "rate_limit_rps":
		return strconv.FormatFloat(c.RateLimitRPS, 'f', -1, 64), nil
	case "rate_limit_burst":
		return strconv.Itoa(c.RateLimitBurst), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "debug":
		return strconv.FormatBool(c.Debug), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val into key and validates the result.
func (c *Global) Set(key, val string) error {
	next := *c
	switch key {
	case "data_path":
		next.DataPath = val
	case "sheet_name":
		next.SheetName = val
	case "listen_addr":
		next.ListenAddr = val
	case "shutdown_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for shutdown_timeout_sec: %w", err)
		}
		next.ShutdownTimeoutSec = i
	case "rate_limit_rps":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for rate_limit_rps: %w", err)
		}
		next.RateLimitRPS = f
	case "rate_limit_burst":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for rate_limit_burst: %w", err)
		}
		next.RateLimitBurst = i
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_format":
		next.LogFormat = strings.ToLower(val)
	case "debug":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for debug: %w", err)
		}
		next.Debug = b
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".findash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.findash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first and never overrides variables already set.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load(".env")
	return load(cfgFile, true)
}

// LoadFile loads configuration from file and defaults only. Environment
// variables are ignored, so the result is safe to modify and Save back.
func LoadFile(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

func load(cfgFile string, withEnv bool) (*Global, error) {
	v := viper.New()
	if withEnv {
		v.SetEnvPrefix("FINDASH")
		v.AutomaticEnv()
	}

	v.SetDefault("data_path", "Financial Sample.xlsx")
	v.SetDefault("sheet_name", "")
	v.SetDefault("listen_addr", "127.0.0.1:8050")
	v.SetDefault("shutdown_timeout_sec", 10)
	v.SetDefault("rate_limit_rps", 20.0)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("debug", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			if _, statErr := os.Stat(cfgFile); statErr == nil {
				return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
			}
		}
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
