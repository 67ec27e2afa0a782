package tags

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"subflow/internal/catalog"
)

var (
	seasonEpisodePattern = regexp.MustCompile(`(?i)\bS(\d{1,3})[\s._-]*E(\d{1,3})\b`)
	altEpisodePattern    = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{1,3})\b`)
	yearPattern          = regexp.MustCompile(`(?:^|[\(\[\.\-_ ])([12]\d{3})(?:[\)\]\.\-_ ]|$)`)
	groupPattern         = regexp.MustCompile(`-([A-Za-z0-9]+)$`)
	resolutionPattern    = regexp.MustCompile(`(?i)\b(480p|576p|720p|1080p|2160p|4k)\b`)
)

// sourceTokens lists source labels with their identifying filename tokens.
// Order is the match priority: names carrying tokens for several sources
// ("1080p.BluRay.WEBRip") resolve to the first label listed here.
var sourceTokens = []struct {
	label string
	names []string
}{
	{"bluray", []string{"bluray", "blu-ray", "bdrip", "brrip", "bdremux", "remux"}},
	{"dvd", []string{"dvd", "dvdrip"}},
	{"web", []string{"webrip", "web-dl", "webdl", "web"}},
	{"hdtv", []string{"hdtv", "pdtv", "tvrip"}},
	{"cam", []string{"cam", "telesync", "telecine"}},
	{"screener", []string{"dvdscr", "screener", "scr"}},
}

// qualityTokens in match priority order; the first token present wins.
var qualityTokens = []string{
	"x264", "x265", "h264", "h265", "hevc", "avc", "av1",
	"xvid", "divx", "10bit", "8bit",
}

// Parse extracts release tags from a filename. An empty result is not an
// error; it signals the caller to consult the remote tag service.
func Parse(name string) catalog.ReleaseTags {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	var out catalog.ReleaseTags

	if m := seasonEpisodePattern.FindStringSubmatch(base); m != nil {
		out.Season, _ = strconv.Atoi(m[1])
		out.Episode, _ = strconv.Atoi(m[2])
	} else if m := altEpisodePattern.FindStringSubmatch(base); m != nil {
		out.Season, _ = strconv.Atoi(m[1])
		out.Episode, _ = strconv.Atoi(m[2])
	}

	if m := resolutionPattern.FindStringSubmatch(base); m != nil {
		out.Resolution = strings.ToLower(m[1])
	}

	lowered := strings.ToLower(base)
	tokens := splitTokens(lowered)
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
	}

	for _, src := range sourceTokens {
		for _, tok := range src.names {
			if strings.Contains(tok, "-") {
				// Hyphenated labels never survive tokenization whole.
				if strings.Contains(lowered, tok) {
					out.Source = src.label
					break
				}
				continue
			}
			if _, ok := tokenSet[tok]; ok {
				out.Source = src.label
				break
			}
		}
		if out.Source != "" {
			break
		}
	}

	for _, tok := range qualityTokens {
		if _, ok := tokenSet[tok]; ok {
			out.Quality = tok
			break
		}
	}

	// Release group: a trailing -GROUP segment, but only on names that carry
	// at least one other release marker; "Spider-Man" has a hyphen too.
	if m := groupPattern.FindStringSubmatch(base); m != nil {
		if out.Source != "" || out.Quality != "" || out.Resolution != "" || out.Season > 0 {
			out.Group = m[1]
		}
	}

	return out
}

// Year extracts a release year from a filename, or 0 when absent.
func Year(name string) int {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	matches := yearPattern.FindAllStringSubmatch(base, -1)
	if len(matches) == 0 {
		return 0
	}
	// Prefer the last year-looking token: titles like "2001 A Space
	// Odyssey 1968" keep the release year, not the title number.
	year, _ := strconv.Atoi(matches[len(matches)-1][1])
	return year
}

// releaseMarkers are tokens that carry no title information. Title
// normalization truncates the name at the first marker.
var releaseMarkers = func() map[string]struct{} {
	set := make(map[string]struct{}, 64)
	for _, src := range sourceTokens {
		for _, tok := range src.names {
			set[tok] = struct{}{}
		}
	}
	for _, tok := range qualityTokens {
		set[tok] = struct{}{}
	}
	for _, tok := range []string{
		"480p", "576p", "720p", "1080p", "2160p", "4k",
		"proper", "repack", "extended", "unrated", "remastered", "internal",
		"limited", "multi", "dubbed", "subbed", "aac", "ac3", "dts", "truehd",
	} {
		set[tok] = struct{}{}
	}
	return set
}()

// IsReleaseMarker reports whether a lowercase token is a known release
// marker rather than part of a title.
func IsReleaseMarker(token string) bool {
	_, ok := releaseMarkers[token]
	return ok
}

func splitTokens(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == '.' || r == '_' || r == ' ' || r == '-' || r == '[' || r == ']' || r == '(' || r == ')'
	})
}
