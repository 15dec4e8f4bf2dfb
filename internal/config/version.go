package config

//
// version.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"runtime/debug"
)

//nolint:gochecknoglobals
var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""

	VersionString = buildVersionString()
)

func buildVersionString() string {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			var dirty string

			for _, kv := range info.Settings {
				switch kv.Key {
				case "vcs.revision":
					Revision = kv.Value
				case "vcs.time":
					BuildDate = kv.Value
				case "vcs.modified":
					dirty = kv.Value
				}
			}

			return fmt.Sprintf("Rev: %s at %s %s", Revision, BuildDate, dirty)
		}
	} else {
		return fmt.Sprintf("Version: %s, Rev: %s, Build: %s", Version, Revision, BuildDate)
	}

	return Version
}
