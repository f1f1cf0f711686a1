package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/loquax"
	"pkt.systems/loquax/internal/appconfig"
	"pkt.systems/loquax/internal/filecache"
	"pkt.systems/loquax/internal/interp"
	"pkt.systems/loquax/internal/library"
	"pkt.systems/pslog"
)

//go:embed assets/LOGO.txt
var serveLogo string

func newServeCmd() *cobra.Command {
	var cfgPath string
	var noBanner bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SSH play server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logMode := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE")))
			showBanner := !noBanner && logMode != "json" && logMode != "structured"
			if showBanner && serveLogo != "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), serveLogo)
			}
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			deps, err := buildServiceDeps(cfg, logger)
			if err != nil {
				return err
			}
			server, err := loquax.New(serverConfig(cfg), deps, loquax.WithSSH(), loquax.WithLogger(logger))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("ssh server listening", "addr", cfg.SSH.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "disable startup banner")
	return cmd
}

func serverConfig(cfg appconfig.Config) loquax.ServerConfig {
	out := loquax.ServerConfig{
		SSH:           cfg.SSH,
		TranscriptMax: cfg.Transcript.MaxEntries,
	}
	if cfg.Transcript.Enabled {
		out.TranscriptDir = cfg.Transcript.Dir
	}
	return out
}

// buildServiceDeps assembles the session service collaborators shared by
// serve and play: the game library, the interpreter runner, and the
// bitmap cache. A cache that fails to open degrades to none.
func buildServiceDeps(cfg appconfig.Config, logger pslog.Logger) (loquax.Deps, error) {
	manager, err := library.NewManagerWithLogger(cfg.GamesDir, logger)
	if err != nil {
		return loquax.Deps{}, err
	}
	runnerCfg, err := cfg.BuildRunnerConfig()
	if err != nil {
		return loquax.Deps{}, err
	}
	runner, err := interp.NewRunner(runnerCfg)
	if err != nil {
		return loquax.Deps{}, err
	}
	deps := loquax.Deps{
		Runner:  runner,
		Library: manager,
		Logger:  logger,
	}
	cache, err := filecache.New(filecache.Config{
		Dir:      cfg.CacheDir,
		MaxFiles: cfg.CacheMaxFiles,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("bitmap cache disabled", "dir", cfg.CacheDir, "err", err)
		return deps, nil
	}
	deps.Cache = filecache.NewBitmapStore(cache, logger)
	return deps, nil
}
