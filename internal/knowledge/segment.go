// Package knowledge builds note records and writes them to the knowledge base.
package knowledge

import (
	"fmt"
	"time"
	"unicode/utf8"

	"linenote/internal/domain"
)

// SegmentLimit is the maximum length of one body segment in runes. Notion
// rejects rich text longer than 2000 characters per block.
const SegmentLimit = 1800

// Segment splits text into consecutive pieces of at most limit runes.
// Joining the pieces gives back text exactly. Empty text has no segments.
func Segment(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 {
		limit = SegmentLimit
	}

	segments := make([]string, 0, utf8.RuneCountInString(text)/limit+1)
	start, runes := 0, 0
	for i := range text {
		if runes == limit {
			segments = append(segments, text[start:i])
			start, runes = i, 0
		}
		runes++
	}
	return append(segments, text[start:])
}

// Title names a note after its type and the local time, to the minute.
func Title(noteType string, t time.Time) string {
	return fmt.Sprintf("%s %s", noteType, t.Format("2006-01-02 15:04"))
}

// Note types used as the knowledge-base tag.
const (
	NoteTypeText  = "Text"
	NoteTypeWeb   = "Web"
	NoteTypeAudio = "Audio"
	NoteTypeImage = "Image"
)

// NoteTypeFor picks the tag for an extraction result. Social posts are
// tagged with their platform name.
func NoteTypeFor(r domain.ExtractionResult) string {
	switch r.Source {
	case domain.SourceSocialPost:
		return r.Platform.DisplayName()
	case domain.SourceWebPage:
		return NoteTypeWeb
	case domain.SourceTranscript:
		return NoteTypeAudio
	case domain.SourceImageDescription:
		return NoteTypeImage
	default:
		return NoteTypeText
	}
}
