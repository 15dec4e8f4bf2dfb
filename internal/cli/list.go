//
// list.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-podcatcher/internal/aerr"
	"gitlab.com/kabes/go-podcatcher/internal/model"
	"gitlab.com/kabes/go-podcatcher/internal/service"
)

const ListSupportedObjects = "podcasts, episodes, recent, resume"

func newListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list podcasts and episodes.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "object",
				Required: true,
				Usage:    "object to list (" + ListSupportedObjects + ")",
				Aliases:  []string{"o"},
			},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "feed url (for episodes)"},
			&cli.IntFlag{Name: "limit", Value: 20, Aliases: []string{"n"}},
		},
		Action: wrap(listCmd),
	}
}

func listCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	object := clicmd.String("object")
	switch object {
	case "podcasts":
		return listPodcastsCmd(ctx, injector)
	case "episodes":
		return listEpisodesCmd(ctx, clicmd, injector)
	case "recent":
		return listRecentCmd(ctx, clicmd, injector)
	case "resume":
		return listResumeCmd(ctx, clicmd, injector)

	default:
		return aerr.ErrValidation.WithUserMsg("unknown object for query %q", object)
	}
}

//nolint:forbidigo
func listPodcastsCmd(ctx context.Context, injector do.Injector) error {
	subsSrv := do.MustInvoke[*service.SubscriptionsSrv](injector)

	podcasts, err := subsSrv.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("get podcasts list error: %w", err)
	}

	fmt.Printf("%-20s | %-40s | %s \n", "Id", "Title", "Feed")
	fmt.Println("--------------------------------------------------------------------------------------------")

	for _, p := range podcasts {
		fmt.Printf("%-20d | %-40s | %s \n", p.ID, p.Title, p.FeedURL)
	}

	return nil
}

//nolint:forbidigo
func listEpisodesCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	subsSrv := do.MustInvoke[*service.SubscriptionsSrv](injector)
	episodesSrv := do.MustInvoke[*service.EpisodesSrv](injector)

	podcast, err := subsSrv.FindPodcast(ctx, clicmd.String("url"))
	if err != nil {
		return fmt.Errorf("find podcast failed: %w", err)
	}

	episodes, err := episodesSrv.ListEpisodes(ctx, podcast.ID)
	if err != nil {
		return fmt.Errorf("get episodes list error: %w", err)
	}

	printEpisodes(episodes, podcast)

	return nil
}

//nolint:forbidigo
func listRecentCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	episodesSrv := do.MustInvoke[*service.EpisodesSrv](injector)

	episodes, err := episodesSrv.ListRecentEpisodes(ctx, uint(clicmd.Int("limit"))) //nolint:gosec
	if err != nil {
		return fmt.Errorf("get recent episodes error: %w", err)
	}

	printEpisodes(episodes, nil)

	return nil
}

//nolint:forbidigo
func listResumeCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	episodesSrv := do.MustInvoke[*service.EpisodesSrv](injector)

	episodes, err := episodesSrv.ListRecentlyPlayed(ctx, uint(clicmd.Int("limit"))) //nolint:gosec
	if err != nil {
		return fmt.Errorf("get recently played error: %w", err)
	}

	printEpisodes(episodes, nil)

	return nil
}

//nolint:forbidigo
func printEpisodes(episodes []model.Episode, podcast *model.Podcast) {
	fmt.Printf("%-20s | %-40s | %-14s | %-10s | %s \n",
		"Id", "Title", "Status", "Position", "Published")
	fmt.Println("--------------------------------------------------------------------------------------------")

	for _, e := range episodes {
		published := ""
		if e.PublishedAt > 0 {
			published = time.Unix(e.PublishedAt, 0).UTC().Format(time.DateOnly)
		}

		position := time.Duration(e.LastPlayedPositionMs) * time.Millisecond

		title := e.Title
		if podcast == nil {
			title = fmt.Sprintf("%.40s", title)
		}

		fmt.Printf("%-20d | %-40s | %-14s | %-10s | %s \n",
			e.ID, title, e.DownloadStatus, position, published)
	}
}
