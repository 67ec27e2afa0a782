// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp file paths, stage names, generation numbers,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's taxonomy (blocking vs degradable vs retryable).
//   - The bounded exponential-backoff retry helper used for transient stage
//     failures and busy cache-store writes.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
