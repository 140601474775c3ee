// Package tasks runs long catalog operations with real-time progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes playlists and albums to disk, one file per source:
//   - Sources are fetched one at a time behind a rate limiter
//   - A bounded worker pool renders and writes each listing in the requested format
//   - Failures are recorded per source and never abort the remaining exports
//   - An export_manifest.json summarizing every result is written last
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on a caller-supplied channel.
// Updates use select with default to prevent blocking, so a slow or absent reader only loses updates.
package tasks
