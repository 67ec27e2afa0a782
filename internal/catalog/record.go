package catalog

import (
	"path"
	"strings"
	"time"
)

// Kind classifies a discovered file.
type Kind string

const (
	KindVideo    Kind = "video"
	KindSubtitle Kind = "subtitle"
	KindOther    Kind = "other"
)

var videoExtensions = map[string]struct{}{
	".mkv": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {},
	".flv": {}, ".m4v": {}, ".mpg": {}, ".mpeg": {}, ".ts": {}, ".webm": {},
}

var subtitleExtensions = map[string]struct{}{
	".srt": {}, ".sub": {}, ".ssa": {}, ".ass": {}, ".vtt": {}, ".smi": {}, ".txt": {},
}

// KindForName classifies a file by its extension.
func KindForName(name string) Kind {
	ext := strings.ToLower(path.Ext(name))
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	if _, ok := subtitleExtensions[ext]; ok {
		return KindSubtitle
	}
	return KindOther
}

// MediaInfo captures technical metadata extracted from a video container.
type MediaInfo struct {
	DurationSeconds float64
	FrameRate       float64
	Width           int
	Height          int
	VideoCodec      string
	BitRate         int64
}

// ReleaseTags holds structured tokens parsed from a release filename.
type ReleaseTags struct {
	Group      string
	Source     string
	Quality    string
	Resolution string
	Season     int
	Episode    int
}

// Empty reports whether no tag was extracted.
func (t ReleaseTags) Empty() bool {
	return t.Group == "" && t.Source == "" && t.Quality == "" &&
		t.Resolution == "" && t.Season == 0 && t.Episode == 0
}

// DuplicateStatus records the outcome of a server-side duplicate lookup.
type DuplicateStatus struct {
	Exists    bool
	RemoteID  string
	CheckedAt time.Time
}

// FileRecord is one discovered file. Path is the unique key: the relative
// path including directories, with forward slashes.
type FileRecord struct {
	Path string
	Name string
	Size int64
	Kind Kind

	// ContentHash is empty until the hash stage completes. A zero or
	// placeholder hash is never stored; hash failure leaves it empty.
	ContentHash string

	// RemovalFlag is set when a stage determines the file is not actually a
	// subtitle and should leave the subtitle set.
	RemovalFlag bool

	Media     *MediaInfo
	Identity  *MovieIdentity
	Tags      *ReleaseTags
	Language  string
	Duplicate *DuplicateStatus
}

// Clone returns a deep copy of the record, detaching all attribute
// pointers so the copy can be read or kept while pipeline stages keep
// mutating the original.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Media != nil {
		media := *r.Media
		out.Media = &media
	}
	if r.Identity != nil {
		identity := *r.Identity
		out.Identity = &identity
	}
	if r.Tags != nil {
		tags := *r.Tags
		out.Tags = &tags
	}
	if r.Duplicate != nil {
		dup := *r.Duplicate
		out.Duplicate = &dup
	}
	return &out
}

// Dir returns the record's directory, "." for top-level files.
func (r *FileRecord) Dir() string {
	if r == nil {
		return "."
	}
	return path.Dir(r.Path)
}

// UploadReady reports whether the required stages have produced a valid
// identity and language. Technical metadata is optional: a file can be
// upload-ready without it.
func (r *FileRecord) UploadReady() bool {
	if r == nil || r.Kind != KindSubtitle || r.RemovalFlag {
		return false
	}
	return r.Identity != nil && r.Identity.IMDBID != "" && r.Language != ""
}
