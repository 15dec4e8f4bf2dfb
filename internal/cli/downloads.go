package cli

//
// downloads.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/download"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/service"
)

//---------------------------------------------------------------------

func newDownloadGetCmd() *cli.Command {
	return &cli.Command{
		Name:  "get",
		Usage: "download episode media and wait for result",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "episode", Required: true, Aliases: []string{"e"}, Usage: "episode id"},
		},
		Action: wrap(downloadGetCmd),
	}
}

//nolint:forbidigo
func downloadGetCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	coord := do.MustInvoke[*download.Coordinator](injector)
	episodesSrv := do.MustInvoke[*service.EpisodesSrv](injector)

	episodeid := int64(clicmd.Int("episode"))

	done, unsubscribe := coord.ObserveCompletion(ctx, episodeid)
	defer unsubscribe()

	if err := coord.Request(ctx, episodeid); err != nil {
		return fmt.Errorf("request download failed: %w", err)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck

		case localpath := <-done:
			fmt.Printf("Downloaded to %s\n", localpath)

			return nil

		case <-ticker.C:
			if pct, ok := coord.ActiveProgress()[episodeid]; ok {
				fmt.Printf("... %d%%\n", pct)

				continue
			}

			// job is gone without completion - check terminal status
			episode, err := episodesSrv.GetEpisode(ctx, episodeid)
			if err != nil {
				return fmt.Errorf("check episode failed: %w", err)
			}

			if episode.DownloadStatus == model.StatusFailed {
				return aerr.New("download failed").WithTag(aerr.NetworkError).
					WithUserMsg("download failed")
			}
		}
	}
}

//---------------------------------------------------------------------

func newDownloadDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "remove downloaded episode media",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "episode", Required: true, Aliases: []string{"e"}, Usage: "episode id"},
		},
		Action: wrap(downloadDeleteCmd),
	}
}

//nolint:forbidigo
func downloadDeleteCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	coord := do.MustInvoke[*download.Coordinator](injector)

	if err := coord.Delete(ctx, int64(clicmd.Int("episode"))); err != nil {
		return fmt.Errorf("delete download failed: %w", err)
	}

	fmt.Println("Download removed")

	return nil
}

//---------------------------------------------------------------------

func newDownloadListCmd() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "list downloaded episodes",
		Action: wrap(downloadListCmd),
	}
}

func downloadListCmd(ctx context.Context, _ *cli.Command, injector do.Injector) error {
	episodesSrv := do.MustInvoke[*service.EpisodesSrv](injector)

	episodes, err := episodesSrv.ListDownloaded(ctx)
	if err != nil {
		return fmt.Errorf("get downloaded episodes error: %w", err)
	}

	printEpisodes(episodes, nil)

	return nil
}
