package catalog

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	srtTimingPattern = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}[,.]\d{1,3}\s*-->\s*\d{1,2}:\d{2}:\d{2}[,.]\d{1,3}`)
	subFramePattern  = regexp.MustCompile(`^\{\d+\}\{\d+\}`)
)

// LooksLikeSubtitle sniffs content for a known subtitle format. Files that
// carry a subtitle extension but plain prose inside (readme dumps, NFO text
// renamed to .txt) fail this check; the pipeline flags them for removal and
// skips language detection.
func LooksLikeSubtitle(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 16*1024 {
		sample = sample[:16*1024]
	}
	// Strip a UTF-8 BOM before sniffing.
	sample = bytes.TrimPrefix(sample, []byte{0xef, 0xbb, 0xbf})
	if !utf8.Valid(sample) {
		return false
	}

	text := string(sample)
	switch {
	case strings.HasPrefix(text, "WEBVTT"):
		return true
	case strings.Contains(text, "[Script Info]"):
		return true
	case srtTimingPattern.MatchString(text):
		return true
	}
	for _, line := range strings.SplitN(text, "\n", 10) {
		if subFramePattern.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}
