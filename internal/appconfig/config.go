package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/loquax/internal/filecache"
	"pkt.systems/loquax/internal/interp"
	"pkt.systems/loquax/reader"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	GamesDir      string           `mapstructure:"games_dir" yaml:"games_dir"`
	CacheDir      string           `mapstructure:"cache_dir" yaml:"cache_dir"`
	CacheMaxFiles int              `mapstructure:"cache_max_files" yaml:"cache_max_files"`
	Interp        InterpConfig     `mapstructure:"interp" yaml:"interp"`
	Console       ConsoleConfig    `mapstructure:"console" yaml:"console"`
	Reader        ReaderConfig     `mapstructure:"reader" yaml:"reader"`
	Transcript    TranscriptConfig `mapstructure:"transcript" yaml:"transcript"`
	SSH           SSHConfig        `mapstructure:"ssh" yaml:"ssh"`
	Logging       LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// InterpConfig locates the interpreter binaries.
type InterpConfig struct {
	Zcode     string            `mapstructure:"zcode" yaml:"zcode"`
	Level9    string            `mapstructure:"level9" yaml:"level9"`
	Magnetic  string            `mapstructure:"magnetic" yaml:"magnetic"`
	ExtraArgs []string          `mapstructure:"extra_args" yaml:"extra_args"`
	Env       map[string]string `mapstructure:"env" yaml:"env"`
}

// ConsoleConfig tunes the VM-side bridge used by vm-mock.
type ConsoleConfig struct {
	BufferSize    int    `mapstructure:"buffer_size" yaml:"buffer_size"`
	CharThreshold int    `mapstructure:"char_threshold" yaml:"char_threshold"`
	MetaPrefix    string `mapstructure:"meta_prefix" yaml:"meta_prefix"`
}

// ReaderConfig tunes turn delimiting and cruft handling. Fields and
// Drops are ordered; earlier rules win.
type ReaderConfig struct {
	QuietPeriodMS int           `mapstructure:"quiet_period_ms" yaml:"quiet_period_ms"`
	PromptSuffix  string        `mapstructure:"prompt_suffix" yaml:"prompt_suffix"`
	UnwrapColumn  int           `mapstructure:"unwrap_column" yaml:"unwrap_column"`
	Fields        []RulePattern `mapstructure:"fields" yaml:"fields"`
	Drops         []RulePattern `mapstructure:"drops" yaml:"drops"`
}

// RulePattern names one regular expression in the cruft rule lists.
type RulePattern struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
}

// TranscriptConfig controls transcript retention.
type TranscriptConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	MaxEntries int    `mapstructure:"max_entries" yaml:"max_entries"`
}

// SSHConfig configures the SSH play server.
type SSHConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
	Banner             string `mapstructure:"banner" yaml:"banner"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	root := filepath.Join(home, ".loquax")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		GamesDir:      filepath.Join(root, "games"),
		CacheDir:      filepath.Join(root, "cache"),
		CacheMaxFiles: filecache.DefaultMaxFiles,
		Interp: InterpConfig{
			Zcode:     "dfrotz",
			Level9:    "l9",
			Magnetic:  "magnetic",
			ExtraArgs: []string{},
			Env:       map[string]string{},
		},
		Console: ConsoleConfig{
			BufferSize:    0,
			CharThreshold: 0,
			MetaPrefix:    "",
		},
		Reader: ReaderConfig{
			QuietPeriodMS: int(reader.DefaultQuietPeriod / time.Millisecond),
			PromptSuffix:  reader.DefaultPromptSuffix,
			UnwrapColumn:  reader.DefaultUnwrapColumn,
			Fields:        DefaultFieldPatterns(),
			Drops:         []RulePattern{},
		},
		Transcript: TranscriptConfig{
			Enabled:    false,
			Dir:        filepath.Join(root, "transcripts"),
			MaxEntries: 1000,
		},
		SSH: SSHConfig{
			Addr:               ":2222",
			HostKeyPath:        filepath.Join(root, "ssh_host_key"),
			AuthorizedKeysPath: "",
			Banner:             "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "",
		},
	}, nil
}

// DefaultFieldPatterns is the classic banner-and-status cruft set: the
// status bar with its wide gap, loader headers, trademark and release
// lines, warnings, the prompt, and the copyright notice.
func DefaultFieldPatterns() []RulePattern {
	return []RulePattern{
		{Name: "title", Pattern: `^(.*) {5,}(.*)$`},
		{Name: "title2", Pattern: `^ {5,}(.*)\w$`},
		{Name: "header", Pattern: `^Using normal.*\nLoading.*$`},
		{Name: "trademark", Pattern: `^.*trademark.*nfocom.*$`},
		{Name: "release", Pattern: `^Release.*Serial.*$`},
		{Name: "warning", Pattern: `^Warning:.*$`},
		{Name: "prompt", Pattern: `(?:\A|\n)>\s*\z`},
		{Name: "copyright", Pattern: `^Copyright (.*)`},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".loquax", "config.yaml"), nil
}

// BuildReaderConfig compiles the reader section into a runtime config.
func (c Config) BuildReaderConfig() (reader.Config, error) {
	fields, order := rulesToMapOrder(c.Reader.Fields)
	extract, err := reader.CompileExtractRules(fields, order)
	if err != nil {
		return reader.Config{}, err
	}
	drops, order := rulesToMapOrder(c.Reader.Drops)
	drop, err := reader.CompileDropRules(drops, order)
	if err != nil {
		return reader.Config{}, err
	}
	return reader.Config{
		QuietPeriod:  time.Duration(c.Reader.QuietPeriodMS) * time.Millisecond,
		PromptSuffix: c.Reader.PromptSuffix,
		UnwrapColumn: c.Reader.UnwrapColumn,
		ExtractRules: extract,
		DropRules:    drop,
	}, nil
}

// BuildRunnerConfig assembles the interpreter runner config, reader
// included.
func (c Config) BuildRunnerConfig() (interp.Config, error) {
	readerCfg, err := c.BuildReaderConfig()
	if err != nil {
		return interp.Config{}, err
	}
	return interp.Config{
		ZcodePath:    c.Interp.Zcode,
		Level9Path:   c.Interp.Level9,
		MagneticPath: c.Interp.Magnetic,
		ExtraArgs:    c.Interp.ExtraArgs,
		Env:          envList(c.Interp.Env),
		Reader:       readerCfg,
	}, nil
}

func rulesToMapOrder(rules []RulePattern) (map[string]string, []string) {
	patterns := make(map[string]string, len(rules))
	order := make([]string, 0, len(rules))
	for _, rule := range rules {
		if rule.Name == "" {
			continue
		}
		patterns[rule.Name] = rule.Pattern
		order = append(order, rule.Name)
	}
	return patterns, order
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
