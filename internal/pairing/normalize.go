package pairing

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	langcodes "subflow/internal/language"
	"subflow/internal/tags"
)

// extraSuffixTokens are non-language segments a subtitle name may append to
// its video's name without breaking the pairing match ("movie.forced.srt").
var extraSuffixTokens = map[string]struct{}{
	"forced": {}, "sdh": {}, "cc": {}, "hi": {}, "full": {}, "sync": {},
}

// genericNames are subtitle base names that carry no title information at
// all. Identification for these falls back to the parent directory name.
var genericNames = map[string]struct{}{
	"sub": {}, "subs": {}, "subtitle": {}, "subtitles": {},
	"cd1": {}, "cd2": {}, "cd3": {}, "disc1": {}, "disc2": {},
	"english": {}, "eng": {}, "track": {},
}

var titleCaser = cases.Title(language.English)

// NormalizeBase reduces a filename to the tokens that identify its title:
// lowercased, extension stripped, truncated at the first release marker or
// year token. "The.Matrix.1999.1080p.BluRay.mkv" becomes "the matrix".
func NormalizeBase(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	tokens := splitTokens(strings.ToLower(base))

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		// A leading year is part of the title ("2001 A Space Odyssey").
		if tags.IsReleaseMarker(tok) || (len(kept) > 0 && isYearToken(tok)) {
			break
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		// The name was nothing but markers; keep the raw tokens so the
		// caller still has something to compare against.
		kept = tokens
	}
	return strings.Join(kept, " ")
}

// SuffixTokens returns the extra segments a subtitle name carries beyond a
// video base, already lowercased. Empty when the names normalize equal.
func SuffixTokens(subtitleNorm, videoNorm string) []string {
	if subtitleNorm == videoNorm {
		return nil
	}
	if !strings.HasPrefix(subtitleNorm, videoNorm+" ") {
		return nil
	}
	return strings.Fields(strings.TrimPrefix(subtitleNorm, videoNorm+" "))
}

// allowedSuffix reports whether every extra token is a language code or a
// recognized subtitle qualifier.
func allowedSuffix(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for i, tok := range tokens {
		if langcodes.IsLanguageToken(tok) {
			continue
		}
		if _, ok := extraSuffixTokens[tok]; ok {
			continue
		}
		// Region subtag directly after a language code, as in "pt-br".
		if i > 0 && len(tok) == 2 && langcodes.IsLanguageToken(tokens[i-1]) {
			continue
		}
		return false
	}
	return true
}

// IsGenericName reports whether a subtitle base name is too generic to
// identify a title on its own.
func IsGenericName(name string) bool {
	base := strings.ToLower(strings.TrimSuffix(path.Base(name), path.Ext(name)))
	if _, ok := genericNames[base]; ok {
		return true
	}
	if len(base) <= 2 {
		return true
	}
	return allDigits(base)
}

// QueryName returns the name to feed the identification service for a file:
// its own base name, or the parent directory name when the base is generic.
func QueryName(relPath string) string {
	base := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	if !IsGenericName(base) {
		return base
	}
	dir := path.Base(path.Dir(relPath))
	if dir == "." || dir == "/" || dir == "" {
		return base
	}
	return dir
}

// DisplayTitle renders a normalized base name for human consumption.
func DisplayTitle(name string) string {
	norm := NormalizeBase(name)
	if norm == "" {
		return name
	}
	return titleCaser.String(norm)
}

func isYearToken(tok string) bool {
	if len(tok) != 4 || (tok[0] != '1' && tok[0] != '2') {
		return false
	}
	return allDigits(tok)
}

func allDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func splitTokens(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		switch r {
		case '.', '_', ' ', '-', '[', ']', '(', ')', '+':
			return true
		}
		return false
	})
}
