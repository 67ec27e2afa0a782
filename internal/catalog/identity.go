package catalog

import "strings"

// IdentityKind distinguishes movies from TV episodes.
type IdentityKind string

const (
	IdentityMovie   IdentityKind = "movie"
	IdentityEpisode IdentityKind = "episode"
)

// MovieIdentity is a resolved movie or episode identity.
//
// For an episode both IMDBID (the episode-level id, used for upload) and
// ParentIMDBID (the show id, used for metadata lookups) are retained
// simultaneously; downstream lookups rely on having both.
type MovieIdentity struct {
	IMDBID       string
	Title        string
	Year         int
	Kind         IdentityKind
	Season       int
	Episode      int
	ParentIMDBID string
}

// IsEpisode reports whether the identity refers to a TV episode.
func (m MovieIdentity) IsEpisode() bool {
	return m.Kind == IdentityEpisode
}

// LookupID returns the id used for metadata lookups: the parent show for
// episodes, the title itself otherwise.
func (m MovieIdentity) LookupID() string {
	if m.IsEpisode() && m.ParentIMDBID != "" {
		return m.ParentIMDBID
	}
	return m.IMDBID
}

// UploadOptions carries the user-editable submission fields.
type UploadOptions struct {
	Comment           string
	Translator        string
	HearingImpaired   bool
	ForeignPartsOnly  bool
	MachineTranslated bool
}

// UploadCandidate pairs a subtitle record with everything upload submission
// needs. Candidates are built only after the required stages completed and
// are immutable for the duration of one upload attempt.
type UploadCandidate struct {
	Subtitle *FileRecord
	Identity MovieIdentity
	Language string
	Options  UploadOptions
}

// Validate reports the first missing required field, if any.
func (c UploadCandidate) Validate() string {
	switch {
	case c.Subtitle == nil:
		return "subtitle record"
	case strings.TrimSpace(c.Subtitle.ContentHash) == "":
		return "content hash"
	case strings.TrimSpace(c.Identity.IMDBID) == "":
		return "movie identity"
	case strings.TrimSpace(c.Language) == "":
		return "language"
	default:
		return ""
	}
}

// GroupKey returns the identity key used to batch candidates that share a
// parent video/identity so redundant context is not resent per call.
func (c UploadCandidate) GroupKey() string {
	return c.Identity.LookupID()
}
