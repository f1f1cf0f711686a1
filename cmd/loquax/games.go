package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/loquax/internal/appconfig"
	"pkt.systems/loquax/internal/library"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

func newGamesCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "games",
		Short: "List playable games in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			manager, err := library.NewManagerWithLogger(cfg.GamesDir, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			games, err := manager.List()
			if err != nil {
				return err
			}
			for _, line := range formatGameList(cfg.GamesDir, games) {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func formatGameList(dir string, games []schema.GameRef) []string {
	if len(games) == 0 {
		return []string{fmt.Sprintf("no games found in %s", dir)}
	}
	width := 0
	for _, game := range games {
		if len(game.Name) > width {
			width = len(game.Name)
		}
	}
	lines := make([]string, 0, len(games)+1)
	lines = append(lines, fmt.Sprintf("games in %s:", dir))
	for _, game := range games {
		lines = append(lines, fmt.Sprintf("  %-*s  %-8s  %s", width, game.Name, game.Format, game.Path))
	}
	return lines
}
