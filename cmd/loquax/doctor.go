package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/internal/appconfig"
	"pkt.systems/loquax/internal/filecache"
	"pkt.systems/loquax/internal/interp"
	"pkt.systems/loquax/internal/library"
	"pkt.systems/loquax/schema"
	"pkt.systems/loquax/sshserver"
	"pkt.systems/pslog"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	var mockTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run loquax diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath)

			games, err := doctorLibrary(cfg, logger)
			if err != nil {
				return err
			}
			if err := doctorInterpreters(cfg, games, logger); err != nil {
				return err
			}
			if err := doctorCache(cfg, logger); err != nil {
				return err
			}
			if err := doctorHostKey(cfg, logger); err != nil {
				return err
			}
			if err := doctorMockSession(cmd.Context(), cfg, mockTimeout, logger); err != nil {
				return err
			}
			logger.Info("doctor complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().DurationVar(&mockTimeout, "mock-timeout", 15*time.Second, "timeout for the mock session check")
	return cmd
}

func doctorLibrary(cfg appconfig.Config, logger pslog.Logger) ([]schema.GameRef, error) {
	manager, err := library.NewManagerWithLogger(cfg.GamesDir, logger)
	if err != nil {
		return nil, fmt.Errorf("games dir: %w", err)
	}
	games, err := manager.List()
	if err != nil {
		return nil, fmt.Errorf("games dir scan: %w", err)
	}
	if len(games) == 0 {
		logger.Warn("doctor games dir empty", "dir", cfg.GamesDir)
	} else {
		logger.Info("doctor games dir ok", "dir", cfg.GamesDir, "games", len(games))
	}
	return games, nil
}

// doctorInterpreters resolves each interpreter binary on PATH. A missing
// binary is fatal only when the library holds games of its format; the
// mock format re-executes this binary and needs nothing.
func doctorInterpreters(cfg appconfig.Config, games []schema.GameRef, logger pslog.Logger) error {
	needed := neededFormats(games)
	for _, format := range []schema.GameFormat{schema.FormatZcode, schema.FormatLevel9, schema.FormatMagnetic} {
		binary := interpreterForFormat(cfg, format)
		if strings.TrimSpace(binary) == "" {
			return fmt.Errorf("interpreter binary for %s is not configured", format)
		}
		path, err := exec.LookPath(binary)
		if err == nil {
			logger.Info("doctor interpreter ok", "format", format, "binary", binary, "path", path)
			continue
		}
		if count := needed[format]; count > 0 {
			return fmt.Errorf("interpreter %q not found on PATH; %d %s game(s) need it", binary, count, format)
		}
		logger.Warn("doctor interpreter missing", "format", format, "binary", binary, "note", "no games of this format installed")
	}
	return nil
}

func neededFormats(games []schema.GameRef) map[schema.GameFormat]int {
	counts := make(map[schema.GameFormat]int)
	for _, game := range games {
		counts[game.Format]++
	}
	return counts
}

func interpreterForFormat(cfg appconfig.Config, format schema.GameFormat) string {
	switch format {
	case schema.FormatZcode:
		return cfg.Interp.Zcode
	case schema.FormatLevel9:
		return cfg.Interp.Level9
	case schema.FormatMagnetic:
		return cfg.Interp.Magnetic
	}
	return ""
}

func doctorCache(cfg appconfig.Config, logger pslog.Logger) error {
	if _, err := filecache.New(filecache.Config{
		Dir:      cfg.CacheDir,
		MaxFiles: cfg.CacheMaxFiles,
		Logger:   logger,
	}); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	logger.Info("doctor cache ok", "dir", cfg.CacheDir)
	return nil
}

func doctorHostKey(cfg appconfig.Config, logger pslog.Logger) error {
	if _, err := sshserver.EnsureHostKey(cfg.SSH.HostKeyPath); err != nil {
		return fmt.Errorf("ssh host key: %w", err)
	}
	logger.Info("doctor host key ok", "path", cfg.SSH.HostKeyPath)
	if strings.TrimSpace(cfg.SSH.AuthorizedKeysPath) == "" {
		logger.Info("doctor ssh auth open", "note", "no authorized_keys configured; guests welcome")
		return nil
	}
	keys, err := sshserver.LoadAuthorizedKeys(cfg.SSH.AuthorizedKeysPath)
	if err != nil {
		return fmt.Errorf("authorized keys: %w", err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("authorized keys file %s contains no keys", cfg.SSH.AuthorizedKeysPath)
	}
	logger.Info("doctor ssh auth ok", "authorized_keys", cfg.SSH.AuthorizedKeysPath, "keys", len(keys))
	return nil
}

// doctorMockSession plays two turns of the built-in mock game through the
// full pipeline: library lookup, subprocess re-exec, stream reader, and
// session assembly.
func doctorMockSession(ctx context.Context, cfg appconfig.Config, timeout time.Duration, logger pslog.Logger) error {
	dir, err := os.MkdirTemp("", "loquax-doctor-*")
	if err != nil {
		return fmt.Errorf("doctor mock workdir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	gamePath := filepath.Join(dir, "doctor.mock")
	if err := os.WriteFile(gamePath, []byte("Doctor Demo\n"), 0o644); err != nil {
		return fmt.Errorf("doctor mock game: %w", err)
	}

	manager, err := library.NewManagerWithLogger(dir, logger)
	if err != nil {
		return err
	}
	runnerCfg, err := cfg.BuildRunnerConfig()
	if err != nil {
		return err
	}
	runner, err := interp.NewRunner(runnerCfg)
	if err != nil {
		return err
	}
	service, err := core.NewService(core.Config{
		Runner:  runner,
		Library: manager,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Info("doctor mock session start")
	session, err := service.Open(runCtx, "doctor")
	if err != nil {
		return fmt.Errorf("doctor mock open: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = service.Release(closeCtx, session.ID())
	}()

	turn, err := session.NextTurn(runCtx)
	if err != nil {
		return fmt.Errorf("doctor mock first turn: %w", err)
	}
	if len(turn.Paragraphs) == 0 {
		return errors.New("doctor mock first turn carried no prose")
	}
	if err := session.Send("look"); err != nil {
		return fmt.Errorf("doctor mock send: %w", err)
	}
	if _, err := session.NextTurn(runCtx); err != nil {
		return fmt.Errorf("doctor mock second turn: %w", err)
	}
	logger.Info("doctor mock session ok", "turns", 2)
	return nil
}
