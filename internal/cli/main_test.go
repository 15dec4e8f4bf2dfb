package cli

//
// main_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"testing"

	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-podcatcher/internal/assert"
)

func subcommandNames(cmd *cli.Command) []string {
	names := make([]string, 0, len(cmd.Commands))
	for _, sub := range cmd.Commands {
		names = append(names, sub.Name)
	}

	return names
}

func TestDownloadSubCmd(t *testing.T) {
	cmd := downloadSubCmd()

	assert.Equal(t, cmd.Name, "download")
	assert.Equal(t, subcommandNames(cmd), []string{"get", "delete", "list"})
}

func TestEpisodeSubCmd(t *testing.T) {
	cmd := episodeSubCmd()

	assert.Equal(t, cmd.Name, "episode")
	assert.Equal(t, subcommandNames(cmd), []string{"archive"})
}

func TestDatabaseSubCmd(t *testing.T) {
	cmd := databaseSubCmd()

	assert.Equal(t, cmd.Name, "database")
	assert.Equal(t, subcommandNames(cmd), []string{"migrate"})
}

func TestEpisodeFlag(t *testing.T) {
	cmd := newDownloadGetCmd()

	flag, ok := cmd.Flags[0].(*cli.IntFlag)
	assert.True(t, ok)
	assert.Equal(t, flag.Name, "episode")
	assert.True(t, flag.Required)
}
