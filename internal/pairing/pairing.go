package pairing

import (
	"sort"

	"subflow/internal/catalog"
)

// Group is one video and the subtitles matched to it. Every video produces
// a group, even with zero subtitles.
type Group struct {
	Video     *catalog.FileRecord
	Subtitles []*catalog.FileRecord
}

// Result partitions a file set into matched groups and orphan subtitles.
type Result struct {
	Groups  []Group
	Orphans []*catalog.FileRecord
}

// Pair groups videos with their most likely subtitles. Matching is confined
// to a directory: a subtitle pairs with a video whose normalized base name
// equals its own, or whose name it extends with a language or qualifier
// suffix ("movie.en.srt" pairs with "movie.mkv"). When several videos match
// one subtitle, an exact name match wins, then the longest common prefix.
// Unmatched subtitles become orphans; an all-orphan result is valid.
//
// Pairing is pure and idempotent: the same file list always yields the same
// groups in the same order.
func Pair(files []*catalog.FileRecord) Result {
	videos := make([]*catalog.FileRecord, 0, len(files))
	subtitles := make([]*catalog.FileRecord, 0, len(files))
	for _, f := range files {
		switch f.Kind {
		case catalog.KindVideo:
			videos = append(videos, f)
		case catalog.KindSubtitle:
			subtitles = append(subtitles, f)
		}
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].Path < videos[j].Path })
	sort.Slice(subtitles, func(i, j int) bool { return subtitles[i].Path < subtitles[j].Path })

	videosByDir := make(map[string][]*catalog.FileRecord)
	norms := make(map[string]string, len(videos)+len(subtitles))
	for _, v := range videos {
		videosByDir[v.Dir()] = append(videosByDir[v.Dir()], v)
		norms[v.Path] = NormalizeBase(v.Name)
	}

	matched := make(map[string][]*catalog.FileRecord, len(videos))
	var orphans []*catalog.FileRecord
	for _, sub := range subtitles {
		subNorm := NormalizeBase(sub.Name)
		best := bestMatch(subNorm, videosByDir[sub.Dir()], norms)
		if best == nil {
			orphans = append(orphans, sub)
			continue
		}
		matched[best.Path] = append(matched[best.Path], sub)
	}

	groups := make([]Group, 0, len(videos))
	for _, v := range videos {
		groups = append(groups, Group{Video: v, Subtitles: matched[v.Path]})
	}
	return Result{Groups: groups, Orphans: orphans}
}

// bestMatch picks the video a subtitle pairs with, or nil.
func bestMatch(subNorm string, candidates []*catalog.FileRecord, norms map[string]string) *catalog.FileRecord {
	var (
		best      *catalog.FileRecord
		bestExact bool
		bestLCP   int
	)
	for _, v := range candidates {
		vidNorm := norms[v.Path]
		exact := subNorm == vidNorm
		if !exact && !allowedSuffix(SuffixTokens(subNorm, vidNorm)) {
			continue
		}
		lcp := commonPrefixLen(subNorm, vidNorm)
		switch {
		case best == nil:
		case exact && !bestExact:
		case exact == bestExact && lcp > bestLCP:
		default:
			continue
		}
		best, bestExact, bestLCP = v, exact, lcp
	}
	return best
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
