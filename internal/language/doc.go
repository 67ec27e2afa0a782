// Package language provides ISO 639 code normalization and filename token
// recognition for subtitle language handling.
package language
