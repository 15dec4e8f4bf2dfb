package db

//
// package.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
)

var Package = do.Package(
	do.Lazy(NewDatabaseI),
	do.Lazy(NewMetricsRegisterer),
)

// NewMetricsRegisterer expose global prometheus registerer via injector; tests
// override it with private registry.
func NewMetricsRegisterer(_ do.Injector) (prometheus.Registerer, error) {
	return prometheus.DefaultRegisterer, nil
}
