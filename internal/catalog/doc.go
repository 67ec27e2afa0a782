// Package catalog defines the entities shared across the pipeline: the
// discovered file records, video/subtitle groupings, resolved movie
// identities, and upload candidates.
//
// All entities are created when a file set is dropped and discarded in full
// when the set is cleared or replaced; there is no incremental merge between
// successive drops. A FileRecord's identity is its relative path plus size,
// and records are mutated in place as pipeline stages attach results.
package catalog
