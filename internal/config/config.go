package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".outfall"

// Global configuration structure.
type Global struct {
	// Clustering
	Eps        float64 `mapstructure:"eps" yaml:"eps"`
	MinSamples int     `mapstructure:"min_samples" yaml:"min_samples"`
	TopN       int     `mapstructure:"top_n" yaml:"top_n"`

	// Reporting
	TopEntities      int    `mapstructure:"top_entities" yaml:"top_entities"`
	OutputDir        string `mapstructure:"output_dir" yaml:"output_dir"`
	ReportTitle      string `mapstructure:"report_title" yaml:"report_title,omitempty"`
	Charts           bool   `mapstructure:"charts" yaml:"charts"`
	GeoJSON          bool   `mapstructure:"geojson" yaml:"geojson"`
	HighlightKeyword string `mapstructure:"highlight_keyword" yaml:"highlight_keyword"`

	// Input parsing
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter,omitempty"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator,omitempty"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator,omitempty"`
	SheetName          string `mapstructure:"sheet_name" yaml:"sheet_name,omitempty"`
	SheetIndex         int    `mapstructure:"sheet_index" yaml:"sheet_index,omitempty"`
	MaxRows            int    `mapstructure:"max_rows" yaml:"max_rows,omitempty"`
	// Columns overrides header aliases per field, e.g. longitude: [lng, x].
	Columns map[string][]string `mapstructure:"columns" yaml:"columns,omitempty"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("eps", 0.3)
	v.SetDefault("min_samples", 3)
	v.SetDefault("top_n", 5)
	v.SetDefault("top_entities", 10)
	v.SetDefault("output_dir", filepath.Join("reports", "trace"))
	v.SetDefault("charts", true)
	v.SetDefault("geojson", true)
	v.SetDefault("highlight_keyword", "冷却水")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
}

// Default returns the built-in configuration.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Path returns cfgFile, or ~/.outfall/config.yaml when it is empty.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.outfall/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
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
// Precedence: env (OUTFALL_*) > config file > defaults. Command flags are
// applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("OUTFALL")
	v.AutomaticEnv()
	for _, k := range Keys {
		_ = v.BindEnv(k)
	}
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, DirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case cfgFile != "" && errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable scalar keys in display order.
var Keys = []string{
	"eps", "min_samples", "top_n", "top_entities", "output_dir", "report_title",
	"charts", "geojson", "highlight_keyword", "delimiter", "decimal_separator",
	"thousands_separator", "sheet_name", "sheet_index", "max_rows",
	"log_level", "log_format", "log_file",
}

// Set assigns a scalar key from its string form.
func (c *Global) Set(key, val string) error {
	switch key {
	case "eps":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || !(f > 0) {
			return fmt.Errorf("invalid float for eps (want > 0): %v", val)
		}
		c.Eps = f
	case "min_samples", "top_n", "top_entities", "sheet_index", "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 || (key == "min_samples" && i < 1) {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "min_samples":
			c.MinSamples = i
		case "top_n":
			c.TopN = i
		case "top_entities":
			c.TopEntities = i
		case "sheet_index":
			c.SheetIndex = i
		case "max_rows":
			c.MaxRows = i
		}
	case "charts", "geojson":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %w", key, err)
		}
		if key == "charts" {
			c.Charts = b
		} else {
			c.GeoJSON = b
		}
	case "delimiter", "decimal_separator", "thousands_separator":
		if val == `\t` || val == "tab" {
			val = "\t"
		}
		if utf8.RuneCountInString(val) > 1 {
			return fmt.Errorf("%s must be a single character: %q", key, val)
		}
		switch key {
		case "delimiter":
			c.Delimiter = val
		case "decimal_separator":
			c.DecimalSeparator = val
		default:
			c.ThousandsSeparator = val
		}
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "output_dir":
		c.OutputDir = val
	case "report_title":
		c.ReportTitle = val
	case "highlight_keyword":
		c.HighlightKeyword = val
	case "sheet_name":
		c.SheetName = val
	case "log_file":
		c.LogFile = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get returns the display form of a scalar key.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "eps":
		return strconv.FormatFloat(c.Eps, 'g', -1, 64), true
	case "min_samples":
		return strconv.Itoa(c.MinSamples), true
	case "top_n":
		return strconv.Itoa(c.TopN), true
	case "top_entities":
		return strconv.Itoa(c.TopEntities), true
	case "output_dir":
		return c.OutputDir, true
	case "report_title":
		return c.ReportTitle, true
	case "charts":
		return strconv.FormatBool(c.Charts), true
	case "geojson":
		return strconv.FormatBool(c.GeoJSON), true
	case "highlight_keyword":
		return c.HighlightKeyword, true
	case "delimiter":
		return strconv.Quote(c.Delimiter), true
	case "decimal_separator":
		return strconv.Quote(c.DecimalSeparator), true
	case "thousands_separator":
		return strconv.Quote(c.ThousandsSeparator), true
	case "sheet_name":
		return c.SheetName, true
	case "sheet_index":
		return strconv.Itoa(c.SheetIndex), true
	case "max_rows":
		return strconv.Itoa(c.MaxRows), true
	case "log_level":
		return c.LogLevel, true
	case "log_format":
		return c.LogFormat, true
	case "log_file":
		return c.LogFile, true
	}
	return "", false
}
