// Package pkg provides shared utilities for the arcmsr adapter driver.
//
// This package contains common functionality used across the adapter core,
// its hardware backends and the command-line tool:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Debug facets that gate per-subsystem debug records
//   - Sentinel errors and task status codes
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentAdapter, "firmware ready", "model", model)
//
// Debug records are additionally filtered by facet. Facets are selected once
// at startup and are read-only afterwards:
//
//	f, err := pkg.ParseFacets("srb,scsi,event")
//	pkg.SetDebugFacets(f)
//
// # Errors
//
// Driver errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrNoTag) {
//	    // All command slots are in flight
//	}
package pkg
