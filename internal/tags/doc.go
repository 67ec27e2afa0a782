// Package tags parses structured release tokens (group, source, quality,
// resolution, season/episode) out of media filenames without touching the
// network. The pipeline tries this parser first and only falls back to the
// remote tag service when nothing useful is extracted.
package tags
