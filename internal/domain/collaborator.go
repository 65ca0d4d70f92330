package domain

import (
	"context"
	"io"
)

// MediaFetcher downloads the binary content of a platform message.
type MediaFetcher interface {
	FetchContent(ctx context.Context, messageID string) (data []byte, contentType string, err error)
}

// TranscribeRequest carries one audio file to a speech-to-text service.
type TranscribeRequest struct {
	Audio    io.Reader
	Filename string // must carry the extension, e.g. "voice.m4a"
	Language string // ISO-639-1 hint
	Prompt   string // vocabulary hint
}

type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (string, error)
}

// DescribeRequest asks a vision model to describe an image.
type DescribeRequest struct {
	Image       []byte
	MimeType    string
	Instruction string
	MaxTokens   int
}

type Describer interface {
	Describe(ctx context.Context, req DescribeRequest) (string, error)
}

// SocialScraper fetches a single post from a social platform.
type SocialScraper interface {
	ScrapePost(ctx context.Context, url string, platform Platform) (*SocialPost, error)
}

// Crawler is a full-page scraping service returning the page's main text.
type Crawler interface {
	Crawl(ctx context.Context, url string) (string, error)
}

// HTMLExtractor fetches a page directly and extracts its text locally.
type HTMLExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Summarizer sends a fully rendered prompt to a language model.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// FileUploader stores a file and returns a shareable link.
type FileUploader interface {
	Upload(ctx context.Context, data []byte, name, mimeType string) (link string, err error)
}

// NoteWriter creates one record in the knowledge base.
type NoteWriter interface {
	CreateNote(ctx context.Context, note NoteRecord) error
}

// ReplySender sends the single reply allowed for a reply token.
type ReplySender interface {
	Reply(ctx context.Context, replyToken, text string) error
}
