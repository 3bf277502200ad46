// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

/*
Package supervisor runs the prediction service under a suture v4 tree.

# Tree

	hikeplanner (root)
	├── model-layer
	│   └── model-refresh    (only when MODEL_REFRESH_INTERVAL > 0)
	└── api-layer
	    └── prediction-http

Each layer is its own supervisor, so repeated failures in one layer trigger
backoff there without restarting the other. Supervisor events are logged
through sutureslog into the zerolog bridge in internal/logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Serve returns after ctx is canceled and every service has returned or the
shutdown timeout has passed. UnstoppedServiceReport lists any stragglers.

The service wrappers live in the services subpackage.
*/
package supervisor
