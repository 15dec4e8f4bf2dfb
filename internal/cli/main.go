package cli

//
// main.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//
import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/config"
)

//nolint:forbidigo
func Main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "print-version",
		Aliases: []string{"V"},
		Usage:   "Print version.",
	}

	cli := &cli.Command{
		Name:    "go-podcatcher",
		Version: config.VersionString,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Value:   "podcatcher.sqlite?_journal_mode=WAL&_synchronous=NORMAL",
				Usage:   "Database file",
				Aliases: []string{"D"},
				Sources: cli.EnvVars("GOPODCATCHER_DB"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "downloads.dir",
				Value:   config.DefaultDownloadsDir(),
				Usage:   "Directory for downloaded episodes",
				Sources: cli.EnvVars("GOPODCATCHER_DOWNLOADS_DIR"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.IntFlag{
				Name:    "downloads.workers",
				Value:   2,
				Usage:   "Number of concurrent download workers",
				Sources: cli.EnvVars("GOPODCATCHER_DOWNLOADS_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "log.level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("GOPODCATCHER_LOGLEVEL"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "log.format",
				Value:   "console",
				Usage:   "Log format (console, logfmt, json, syslog)",
				Sources: cli.EnvVars("GOPODCATCHER_LOGFORMAT"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
		},
		Commands: []*cli.Command{
			newRefreshCmd(),
			newSubscribeCmd(),
			newUnsubscribeCmd(),
			newListCmd(),
			downloadSubCmd(),
			episodeSubCmd(),
			databaseSubCmd(),
		},
	}

	if err := cli.Run(context.Background(), os.Args); err != nil {
		if h := aerr.GetUserMessage(err); h != "" {
			fmt.Printf("Error: %s\n", h)
		} else {
			fmt.Printf("Error: %s\n", err.Error())
		}

		if cli.String("log.level") == "debug" {
			fmt.Printf("Error: %#+v\n", err)
		}
	}
}

func downloadSubCmd() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "manage episode downloads",
		Commands: []*cli.Command{
			newDownloadGetCmd(),
			newDownloadDeleteCmd(),
			newDownloadListCmd(),
		},
	}
}

func episodeSubCmd() *cli.Command {
	return &cli.Command{
		Name:  "episode",
		Usage: "manage episodes",
		Commands: []*cli.Command{
			newArchiveEpisodeCmd(),
		},
	}
}

func databaseSubCmd() *cli.Command {
	return &cli.Command{
		Name:  "database",
		Usage: "manage database",
		Commands: []*cli.Command{
			newMigrateCmd(),
		},
	}
}
