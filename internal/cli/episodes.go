package cli

//
// episodes.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-podcatcher/internal/service"
)

func newArchiveEpisodeCmd() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "archive episode; downloaded media is removed",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "episode", Required: true, Aliases: []string{"e"}, Usage: "episode id"},
			&cli.BoolFlag{Name: "undo", Usage: "restore archived episode"},
		},
		Action: wrap(archiveEpisodeCmd),
	}
}

//nolint:forbidigo
func archiveEpisodeCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	episodesSrv := do.MustInvoke[*service.EpisodesSrv](injector)

	archived := !clicmd.Bool("undo")
	if err := episodesSrv.SetArchived(ctx, int64(clicmd.Int("episode")), archived); err != nil {
		return fmt.Errorf("set archived failed: %w", err)
	}

	if archived {
		fmt.Println("Episode archived")
	} else {
		fmt.Println("Episode restored")
	}

	return nil
}
