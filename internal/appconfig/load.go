package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. An empty path uses
// DefaultConfigPath; a missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("games_dir", cfg.GamesDir)
	v.SetDefault("cache_dir", cfg.CacheDir)
	v.SetDefault("cache_max_files", cfg.CacheMaxFiles)
	v.SetDefault("interp.zcode", cfg.Interp.Zcode)
	v.SetDefault("interp.level9", cfg.Interp.Level9)
	v.SetDefault("interp.magnetic", cfg.Interp.Magnetic)
	v.SetDefault("interp.extra_args", cfg.Interp.ExtraArgs)
	v.SetDefault("interp.env", cfg.Interp.Env)
	v.SetDefault("console.buffer_size", cfg.Console.BufferSize)
	v.SetDefault("console.char_threshold", cfg.Console.CharThreshold)
	v.SetDefault("console.meta_prefix", cfg.Console.MetaPrefix)
	v.SetDefault("reader.quiet_period_ms", cfg.Reader.QuietPeriodMS)
	v.SetDefault("reader.prompt_suffix", cfg.Reader.PromptSuffix)
	v.SetDefault("reader.unwrap_column", cfg.Reader.UnwrapColumn)
	v.SetDefault("reader.fields", cfg.Reader.Fields)
	v.SetDefault("reader.drops", cfg.Reader.Drops)
	v.SetDefault("transcript.enabled", cfg.Transcript.Enabled)
	v.SetDefault("transcript.dir", cfg.Transcript.Dir)
	v.SetDefault("transcript.max_entries", cfg.Transcript.MaxEntries)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys_path", cfg.SSH.AuthorizedKeysPath)
	v.SetDefault("ssh.banner", cfg.SSH.Banner)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	// Rule patterns must compile; surface bad regexps at load time rather
	// than on the first turn.
	if _, err := cfg.BuildReaderConfig(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.GamesDir = expandEnv(cfg.GamesDir)
	cfg.CacheDir = expandEnv(cfg.CacheDir)
	cfg.Interp.Zcode = expandEnv(cfg.Interp.Zcode)
	cfg.Interp.Level9 = expandEnv(cfg.Interp.Level9)
	cfg.Interp.Magnetic = expandEnv(cfg.Interp.Magnetic)
	cfg.Transcript.Dir = expandEnv(cfg.Transcript.Dir)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeysPath = expandEnv(cfg.SSH.AuthorizedKeysPath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
