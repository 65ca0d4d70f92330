package domain

import "time"

// SourceKind tells where the normalized text of an extraction came from.
type SourceKind string

const (
	SourcePlainText        SourceKind = "plain_text"
	SourceCommand          SourceKind = "command"
	SourceSocialPost       SourceKind = "social_post"
	SourceWebPage          SourceKind = "web_page"
	SourceTranscript       SourceKind = "transcript"
	SourceImageDescription SourceKind = "image_description"
)

// Platform identifies a social network whose posts need a dedicated scraper.
type Platform string

const (
	PlatformNone      Platform = ""
	PlatformThreads   Platform = "threads"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// DisplayName returns the human-readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformThreads:
		return "Threads"
	case PlatformInstagram:
		return "Instagram"
	case PlatformFacebook:
		return "Facebook"
	default:
		return "Social"
	}
}

// ExtractionResult is the normalized text produced for one event.
// An empty Text means every resolver failed.
type ExtractionResult struct {
	Text     string
	Source   SourceKind
	Platform Platform
	URL      string
	Resolver string
}

// Empty reports whether extraction produced no usable text.
func (r ExtractionResult) Empty() bool {
	return r.Text == ""
}

// NoteRecord is what gets written to the knowledge base. Records are
// written once and never updated.
type NoteRecord struct {
	Title     string
	NoteType  string
	CreatedAt time.Time
	Segments  []string
	Digest    string
	SourceURL string
	SenderID  string
	MediaLink string
}

// SocialPost is the structured result of a social scrape.
type SocialPost struct {
	Author    string
	Text      string
	Published string
	URL       string
}
