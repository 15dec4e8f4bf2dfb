package config

//
// config.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"os"
	"path/filepath"

	"gitlab.com/kabes/go-podcatcher/internal/aerr"
)

// DBConfig keep database configuration.
type DBConfig struct {
	Driver  string
	Connstr string
}

func (c *DBConfig) Validate() error {
	if c.Connstr == "" {
		return aerr.ErrInvalidConf.WithUserMsg("database connection string can't be empty")
	}

	return nil
}

//-------------------------------------------------------------

// DownloadsConf configure the episode download subsystem.
type DownloadsConf struct {
	// Dir is directory where downloaded episodes are stored.
	Dir string
	// Workers is number of concurrent download workers.
	Workers int
}

func (c *DownloadsConf) Validate() error {
	if c.Dir == "" {
		return aerr.ErrInvalidConf.WithUserMsg("downloads directory can't be empty")
	}

	if c.Workers < 1 {
		return aerr.ErrInvalidConf.WithUserMsg("downloads workers must be >= 1")
	}

	return nil
}

// EnsureDir create downloads directory when missing.
func (c *DownloadsConf) EnsureDir() error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil { //nolint:mnd
		return aerr.Wrapf(err, "create downloads dir failed").
			WithTag(aerr.ConfigurationError).WithMeta("dir", c.Dir)
	}

	return nil
}

// DefaultDownloadsDir return downloads directory under user cache dir.
func DefaultDownloadsDir() string {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "downloads"
	}

	return filepath.Join(cache, "go-podcatcher", "downloads")
}
