// Package pairing groups discovered video files with their most likely
// subtitle files by directory co-location and filename similarity. Subtitles
// that match no video are reported as orphans rather than errors; the
// pipeline identifies them independently.
package pairing
