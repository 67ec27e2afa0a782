package language_test

import (
	"testing"

	"subflow/internal/language"
)

func TestToISO2(t *testing.T) {
	cases := map[string]string{
		"en":      "en",
		"eng":     "en",
		"english": "en",
		"FRE":     "fr",
		"fra":     "fr",
		"xx":      "xx",
		"unknown": "",
		"":        "",
	}
	for input, want := range cases {
		if got := language.ToISO2(input); got != want {
			t.Errorf("ToISO2(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestToISO3(t *testing.T) {
	if got := language.ToISO3("de"); got != "deu" {
		t.Fatalf("ToISO3(de) = %q", got)
	}
	if got := language.ToISO3("nosuch"); got != "und" {
		t.Fatalf("ToISO3(nosuch) = %q", got)
	}
	if got := language.ToISO3("qqq"); got != "qqq" {
		t.Fatalf("expected 3-letter passthrough, got %q", got)
	}
}

func TestFromFileName(t *testing.T) {
	cases := map[string]string{
		"movie.en.srt":               "en",
		"Movie.2020.english.srt":     "en",
		"show.s01e02.fre.forced.srt": "fr",
		"movie.srt":                  "",
		"movie.mkv":                  "",
		"dir/movie.pt.srt":           "pt",
	}
	for input, want := range cases {
		if got := language.FromFileName(input); got != want {
			t.Errorf("FromFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestIsLanguageToken(t *testing.T) {
	if !language.IsLanguageToken("en") || !language.IsLanguageToken("english") {
		t.Fatal("expected english tokens to be recognized")
	}
	if language.IsLanguageToken("1080p") || language.IsLanguageToken("cd1") {
		t.Fatal("release tokens must not be treated as languages")
	}
}

func TestNormalizeList(t *testing.T) {
	got := language.NormalizeList([]string{"ENG", "en", "", "fre", "de"})
	want := []string{"en", "fr", "de"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeList = %v, want %v", got, want)
		}
	}
}
