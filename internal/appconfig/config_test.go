package appconfig

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigShape(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("config_version = %d", cfg.ConfigVersion)
	}
	if !strings.HasSuffix(cfg.GamesDir, ".loquax/games") {
		t.Fatalf("games_dir = %q", cfg.GamesDir)
	}
	if cfg.Interp.Zcode != "dfrotz" {
		t.Fatalf("interp.zcode = %q", cfg.Interp.Zcode)
	}
	if len(cfg.Reader.Fields) != 8 {
		t.Fatalf("field patterns = %d", len(cfg.Reader.Fields))
	}
	if cfg.Reader.Fields[0].Name != "title" || cfg.Reader.Fields[7].Name != "copyright" {
		t.Fatalf("field order = %v", cfg.Reader.Fields)
	}
}

func TestBuildReaderConfigCompilesDefaults(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	readerCfg, err := cfg.BuildReaderConfig()
	if err != nil {
		t.Fatalf("build reader config: %v", err)
	}
	if readerCfg.QuietPeriod != 150*time.Millisecond {
		t.Fatalf("quiet period = %v", readerCfg.QuietPeriod)
	}
	if readerCfg.PromptSuffix != ">" {
		t.Fatalf("prompt suffix = %q", readerCfg.PromptSuffix)
	}
	if len(readerCfg.ExtractRules) != 8 {
		t.Fatalf("extract rules = %d", len(readerCfg.ExtractRules))
	}
	if readerCfg.ExtractRules[0].Name != "title" {
		t.Fatalf("first rule = %q", readerCfg.ExtractRules[0].Name)
	}
}

func TestBuildRunnerConfigCarriesPaths(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Interp.Zcode = "/opt/frotz/dfrotz"
	cfg.Interp.ExtraArgs = []string{"-q"}
	cfg.Interp.Env = map[string]string{"TERM": "dumb"}
	runnerCfg, err := cfg.BuildRunnerConfig()
	if err != nil {
		t.Fatalf("build runner config: %v", err)
	}
	if runnerCfg.ZcodePath != "/opt/frotz/dfrotz" {
		t.Fatalf("zcode path = %q", runnerCfg.ZcodePath)
	}
	if len(runnerCfg.ExtraArgs) != 1 || runnerCfg.ExtraArgs[0] != "-q" {
		t.Fatalf("extra args = %v", runnerCfg.ExtraArgs)
	}
	if len(runnerCfg.Env) != 1 || runnerCfg.Env[0] != "TERM=dumb" {
		t.Fatalf("env = %v", runnerCfg.Env)
	}
}

func TestBuildReaderConfigRejectsBadPattern(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Reader.Drops = []RulePattern{{Name: "broken", Pattern: "("}}
	if _, err := cfg.BuildReaderConfig(); err == nil {
		t.Fatalf("expected compile error")
	}
}
