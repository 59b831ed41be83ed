// Package tasks runs long-running search operations with real-time progress reporting.
//
// # Core Operations
//
//  1. [Engine.Batch] : search many queries at once
//     - A worker pool shares a [rate.Limiter] so the API sees a steady request rate
//     - Each result set is recorded locally and optionally exported through the formatter package
//     - The first signup-required response stops the batch and skips everything still queued
//     - A JSON manifest summarizing every query is written next to the exports
//
//  2. [Engine.Dump] : fetch everything the server keeps about the caller's searches
//     - Walks every history page, then favorites, then the quota status
//     - Failed endpoints are collected instead of aborting the dump
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
