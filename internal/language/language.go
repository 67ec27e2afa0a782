package language

import "strings"

// entry describes one language: ISO 639-1 code, ISO 639-2 code with an
// optional bibliographic alternate ("fre" next to "fra"), a display name,
// and the full word form seen in subtitle filenames.
type entry struct {
	code2, code3, alt3 string
	display, word      string
}

var languages = []entry{
	{code2: "en", code3: "eng", display: "English", word: "english"},
	{code2: "es", code3: "spa", display: "Spanish", word: "spanish"},
	{code2: "fr", code3: "fra", alt3: "fre", display: "French", word: "french"},
	{code2: "de", code3: "deu", alt3: "ger", display: "German", word: "german"},
	{code2: "it", code3: "ita", display: "Italian", word: "italian"},
	{code2: "pt", code3: "por", display: "Portuguese", word: "portuguese"},
	{code2: "ja", code3: "jpn", display: "Japanese", word: "japanese"},
	{code2: "ko", code3: "kor", display: "Korean", word: "korean"},
	{code2: "zh", code3: "zho", alt3: "chi", display: "Chinese", word: "chinese"},
	{code2: "ru", code3: "rus", display: "Russian", word: "russian"},
	{code2: "ar", code3: "ara", display: "Arabic", word: "arabic"},
	{code2: "hi", code3: "hin", display: "Hindi", word: "hindi"},
	{code2: "nl", code3: "nld", alt3: "dut", display: "Dutch", word: "dutch"},
	{code2: "pl", code3: "pol", display: "Polish", word: "polish"},
	{code2: "sv", code3: "swe", display: "Swedish", word: "swedish"},
	{code2: "da", code3: "dan", display: "Danish", word: "danish"},
	{code2: "no", code3: "nor", display: "Norwegian", word: "norwegian"},
	{code2: "fi", code3: "fin", display: "Finnish", word: "finnish"},
	{code2: "el", code3: "ell", alt3: "gre", display: "Greek", word: "greek"},
	{code2: "tr", code3: "tur", display: "Turkish", word: "turkish"},
	{code2: "cs", code3: "ces", alt3: "cze", display: "Czech", word: "czech"},
	{code2: "hu", code3: "hun", display: "Hungarian", word: "hungarian"},
	{code2: "ro", code3: "ron", alt3: "rum", display: "Romanian", word: "romanian"},
	{code2: "he", code3: "heb", display: "Hebrew", word: "hebrew"},
}

// index maps every recognized spelling of a language to its entry.
var index = buildIndex()

func buildIndex() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[e.code3] = e
		m[e.word] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
	}
	return m
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	return index[code]
}

// ToISO2 maps any recognized code or word to its ISO 639-1 form. An
// unrecognized 2-letter code passes through untouched; anything else
// unrecognized maps to "".
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	if trimmed := strings.ToLower(strings.TrimSpace(code)); len(trimmed) == 2 {
		return trimmed
	}
	return ""
}

// ToISO3 maps any recognized code to its ISO 639-2 form. An unrecognized
// 3-letter code passes through; anything else unrecognized maps to "und".
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	if trimmed := strings.ToLower(strings.TrimSpace(code)); len(trimmed) == 3 {
		return trimmed
	}
	return "und"
}

// DisplayName renders a code for humans: the table name when recognized,
// "Unknown" for empty input, the uppercased code otherwise.
func DisplayName(code string) string {
	if e := lookup(code); e != nil {
		return e.display
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	return strings.ToUpper(trimmed)
}

// IsLanguageToken reports whether a filename token (e.g. the "en" in
// "movie.en.srt", or "english" or "eng") names a language. Used by the
// pairing engine to recognize language suffixes on subtitle names.
func IsLanguageToken(token string) bool {
	return lookup(token) != nil
}

// FromFileName extracts a language code from trailing filename tokens such as
// "movie.en.srt" or "movie.english.forced.srt". Returns the ISO 639-1 code
// or empty when no token names a language.
func FromFileName(name string) string {
	base := name
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	parts := strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' '
	})
	// The extension itself is never a language; scan the tokens before it,
	// innermost first.
	for i := len(parts) - 2; i >= 1; i-- {
		if e := lookup(parts[i]); e != nil {
			return e.code2
		}
	}
	return ""
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, lang := range codes {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 2 {
			if mapped := ToISO2(trimmed); mapped != "" {
				trimmed = mapped
			}
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
