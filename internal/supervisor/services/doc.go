// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

/*
Package services provides suture.Service wrappers for the prediction service.

Each wrapper implements suture's Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and identifies itself through fmt.Stringer for suture's event log.

HTTPServerService translates http.Server's blocking ListenAndServe into
Serve, calling Shutdown with a bounded timeout when the context ends.

ModelRefreshService polls blob storage for a newer hikeplanner-model-<n>
container and swaps it into the API handler without a restart. It never
returns an error for a failed fetch, so a storage outage does not count
against the supervisor's failure threshold.
*/
package services
