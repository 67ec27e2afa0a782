// Package pipeline drives the per-file identification state machine. Every
// discovered file moves through a partial order of stages (hash, metadata,
// identification, tags, language detection, duplicate check); each
// (file, stage) pair is tracked as pending, processing, complete, or
// failed. Stage tasks run concurrently across files under a bounded
// semaphore, consult the TTL cache before any network call, retry
// transient failures with backoff, and are tagged with a generation so a
// new file drop invalidates late results from the previous one.
package pipeline
