package pipeline

import "subflow/internal/catalog"

// Stage names one discrete unit of the identification pipeline.
type Stage string

const (
	StageHash      Stage = "hash"
	StageMetadata  Stage = "metadata"
	StageIdentify  Stage = "identify"
	StageTags      Stage = "tags"
	StageLanguage  Stage = "language"
	StageDuplicate Stage = "duplicate"
)

// StagesFor returns the stages that apply to a file kind. Videos hash and
// probe; subtitles fingerprint, classify language, and check duplicates.
// Both kinds are identified and tagged.
func StagesFor(kind catalog.Kind) []Stage {
	switch kind {
	case catalog.KindVideo:
		return []Stage{StageHash, StageMetadata, StageIdentify, StageTags}
	case catalog.KindSubtitle:
		return []Stage{StageHash, StageIdentify, StageTags, StageLanguage, StageDuplicate}
	default:
		return nil
	}
}

// Blocking reports whether a terminal failure of this stage blocks
// upload-readiness. Hash, metadata, and tag failures degrade gracefully.
func (s Stage) Blocking(kind catalog.Kind) bool {
	switch s {
	case StageIdentify, StageLanguage:
		return true
	case StageHash, StageDuplicate:
		// A subtitle without a fingerprint or duplicate answer cannot be
		// safely submitted.
		return kind == catalog.KindSubtitle
	default:
		return false
	}
}
