// Package config loads, normalizes, and validates the TOML configuration
// for subflow. Loading is tolerant of a missing file (defaults apply) but
// strict about unusable values: a missing subtitle database credential is a
// hard error surfaced to the caller.
package config
