package tags

import (
	"testing"

	"subflow/internal/catalog"
)

func TestParseExtractsReleaseTags(t *testing.T) {
	cases := []struct {
		name string
		file string
		want catalog.ReleaseTags
	}{
		{
			name: "scene movie release",
			file: "The.Matrix.1999.1080p.BluRay.x264-SPARKS.mkv",
			want: catalog.ReleaseTags{Group: "SPARKS", Source: "bluray", Quality: "x264", Resolution: "1080p"},
		},
		{
			name: "web episode release",
			file: "Severance.S02E04.2160p.WEB-DL.HEVC-NTb.mkv",
			want: catalog.ReleaseTags{Group: "NTb", Source: "web", Quality: "hevc", Resolution: "2160p", Season: 2, Episode: 4},
		},
		{
			name: "alternate episode notation",
			file: "the office 3x12 hdtv xvid.avi",
			want: catalog.ReleaseTags{Source: "hdtv", Quality: "xvid", Season: 3, Episode: 12},
		},
		{
			name: "plain title yields nothing",
			file: "Home Movie Of The Lake.mp4",
			want: catalog.ReleaseTags{},
		},
		{
			name: "hyphenated title is not a group",
			file: "Spider-Man.mkv",
			want: catalog.ReleaseTags{},
		},
		{
			name: "hyphenated title with markers keeps the group",
			file: "Spider-Man.2002.720p.BDRip-YIFY.mp4",
			want: catalog.ReleaseTags{Group: "YIFY", Source: "bluray", Resolution: "720p"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.file)
			if got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.file, got, tc.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if !Parse("vacation clip.mov").Empty() {
		t.Fatal("expected no tags for an untagged name")
	}
	if Parse("Dune.Part.Two.2024.1080p.WEBRip.mkv").Empty() {
		t.Fatal("expected tags for a release name")
	}
}

func TestYear(t *testing.T) {
	cases := []struct {
		file string
		want int
	}{
		{"The.Matrix.1999.1080p.mkv", 1999},
		{"2001 A Space Odyssey (1968).mkv", 1968},
		{"Blade Runner [1982] BluRay.mkv", 1982},
		{"Severance.S02E04.mkv", 0},
		{"1080p.only.mkv", 0},
	}
	for _, tc := range cases {
		if got := Year(tc.file); got != tc.want {
			t.Errorf("Year(%q) = %d, want %d", tc.file, got, tc.want)
		}
	}
}

func TestIsReleaseMarker(t *testing.T) {
	for _, tok := range []string{"bluray", "x265", "720p", "proper", "webrip"} {
		if !IsReleaseMarker(tok) {
			t.Errorf("expected %q to be a release marker", tok)
		}
	}
	for _, tok := range []string{"matrix", "severance", "lake"} {
		if IsReleaseMarker(tok) {
			t.Errorf("did not expect %q to be a release marker", tok)
		}
	}
}

func TestParseIsDeterministicForMixedMarkers(t *testing.T) {
	// Carries tokens for two sources and two codecs; priority order must
	// pick the same winner on every call.
	const file = "Movie.2020.1080p.BluRay.WEBRip.x264.hevc-GRP.mkv"
	want := catalog.ReleaseTags{Group: "GRP", Source: "bluray", Quality: "x264", Resolution: "1080p"}
	for i := 0; i < 100; i++ {
		if got := Parse(file); got != want {
			t.Fatalf("iteration %d: Parse(%q) = %+v, want %+v", i, file, got, want)
		}
	}
}
