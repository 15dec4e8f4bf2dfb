package cli

//
// podcasts.go
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

//---------------------------------------------------------------------

func newRefreshCmd() *cli.Command {
	return &cli.Command{
		Name:   "refresh",
		Usage:  "refresh all subscribed podcasts",
		Action: wrap(refreshCmd),
	}
}

//nolint:forbidigo
func refreshCmd(ctx context.Context, _ *cli.Command, injector do.Injector) error {
	syncSrv := do.MustInvoke[*service.FeedSyncSrv](injector)

	if err := syncSrv.RefreshAll(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	fmt.Println("Refresh finished")

	return nil
}

//---------------------------------------------------------------------

func newSubscribeCmd() *cli.Command {
	return &cli.Command{
		Name:  "subscribe",
		Usage: "subscribe to podcast feed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Required: true, Aliases: []string{"u"}, Usage: "feed url"},
		},
		Action: wrap(subscribeCmd),
	}
}

//nolint:forbidigo
func subscribeCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	subsSrv := do.MustInvoke[*service.SubscriptionsSrv](injector)

	podcast, err := subsSrv.Subscribe(ctx, clicmd.String("url"))
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	fmt.Printf("Subscribed to %q (id=%d)\n", podcast.Title, podcast.ID)

	return nil
}

//---------------------------------------------------------------------

func newUnsubscribeCmd() *cli.Command {
	return &cli.Command{
		Name:  "unsubscribe",
		Usage: "unsubscribe from podcast and remove its episodes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Required: true, Aliases: []string{"u"}, Usage: "feed url"},
		},
		Action: wrap(unsubscribeCmd),
	}
}

//nolint:forbidigo
func unsubscribeCmd(ctx context.Context, clicmd *cli.Command, injector do.Injector) error {
	subsSrv := do.MustInvoke[*service.SubscriptionsSrv](injector)

	podcast, err := subsSrv.FindPodcast(ctx, clicmd.String("url"))
	if err != nil {
		return fmt.Errorf("find podcast failed: %w", err)
	}

	if err := subsSrv.Unsubscribe(ctx, podcast.ID); err != nil {
		return fmt.Errorf("unsubscribe failed: %w", err)
	}

	fmt.Printf("Unsubscribed from %q\n", podcast.Title)

	return nil
}
