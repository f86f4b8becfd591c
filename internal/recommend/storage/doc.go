// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package storage persists recommendation engine snapshots.
//
// A snapshot (training matrix plus user similarity matrix) is expensive to
// rebuild on large logs, so the server writes every build to disk and
// restores the newest one on startup before the first rebuild completes.
//
// # Storage Format
//
//	filename: {name}_v{version}.gob.gz
//
//	structure (gob):
//	  - Metadata (SnapshotMetadata)
//	  - CompressedData (gzip of the gob-encoded matrices)
//
// The similarity matrix is stored as its packed upper triangle. A SHA-256
// checksum of the uncompressed payload is verified on every load.
//
// # Usage Example
//
//	store, err := storage.NewStore("/data/snapshots")
//	if err != nil {
//	    return err
//	}
//	if _, err := store.Save(ctx, "training", snap); err != nil {
//	    return err
//	}
//
//	// Restore the newest version
//	snap, meta, err := store.Load(ctx, "training", 0)
//
//	// Keep the five newest versions
//	removed, err := store.Prune(ctx, "training", 5)
//
// # Thread Safety
//
// A Store is safe for concurrent use within one process. Files are written
// to a temporary name and renamed into place.
package storage
