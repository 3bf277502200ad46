// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package testinfra starts throwaway backing services for integration tests.
//
// MongoDB and MinIO run in Docker via testcontainers-go, so the document
// store swap and the versioned blob containers are exercised against the
// real servers rather than fakes:
//
//	func TestMongoSwap(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    mongo, err := testinfra.NewMongoContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, mongo)
//
//	    coll, err := store.OpenMongo(ctx, mongo.URI, "test", "tracks", 10*time.Second)
//	    // ...
//	}
//
// All files carry the integration build tag; run them with
// go test -tags integration ./...
package testinfra
