package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"linenote/internal/domain"
)

const (
	notionDefaultBase = "https://api.notion.com"
	notionAPIVersion  = "2022-06-28"
	// Notion accepts at most 100 children per request.
	notionMaxChildren = 100
	// Rich text properties are capped at 2000 characters.
	notionMaxText = 2000
)

// Property names in the target database.
const (
	PropName    = "Name"
	PropSummary = "Summary"
	PropDate    = "Date"
	PropType    = "Type"
	PropURL     = "URL"
	PropUserID  = "User ID"
	PropMedia   = "Media"
)

// NotionWriter creates one database page per note.
type NotionWriter struct {
	apiKey     string
	databaseID string
	baseURL    string
	client     *http.Client
	logger     *slog.Logger
}

type NotionConfig struct {
	APIKey     string
	DatabaseID string
	BaseURL    string
	Client     *http.Client
	Logger     *slog.Logger
}

func NewNotionWriter(cfg NotionConfig) *NotionWriter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = notionDefaultBase
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 60 * time.Second}
	}
	return &NotionWriter{
		apiKey:     cfg.APIKey,
		databaseID: cfg.DatabaseID,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     cfg.Client,
		logger:     cfg.Logger,
	}
}

type notionText struct {
	Type string `json:"type"`
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

func richText(s string) []notionText {
	if s == "" {
		return []notionText{}
	}
	t := notionText{Type: "text"}
	t.Text.Content = s
	return []notionText{t}
}

type notionBlock struct {
	Object    string `json:"object"`
	Type      string `json:"type"`
	Paragraph struct {
		RichText []notionText `json:"rich_text"`
	} `json:"paragraph"`
}

func paragraph(s string) notionBlock {
	b := notionBlock{Object: "block", Type: "paragraph"}
	b.Paragraph.RichText = richText(s)
	return b
}

type notionPageRequest struct {
	Parent struct {
		DatabaseID string `json:"database_id"`
	} `json:"parent"`
	Properties map[string]any `json:"properties"`
	Children   []notionBlock  `json:"children,omitempty"`
}

type notionPageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateNote creates the page and appends any body blocks beyond the first
// request's limit.
func (w *NotionWriter) CreateNote(ctx context.Context, note domain.NoteRecord) error {
	if w.apiKey == "" || w.databaseID == "" {
		return fmt.Errorf("notion: %w", domain.ErrUnavailable)
	}

	blocks := make([]notionBlock, len(note.Segments))
	for i, seg := range note.Segments {
		blocks[i] = paragraph(seg)
	}
	first := blocks
	var rest []notionBlock
	if len(blocks) > notionMaxChildren {
		first, rest = blocks[:notionMaxChildren], blocks[notionMaxChildren:]
	}

	var req notionPageRequest
	req.Parent.DatabaseID = w.databaseID
	req.Properties = pageProperties(note)
	req.Children = first

	var page notionPageResponse
	if err := w.do(ctx, http.MethodPost, "/v1/pages", req, &page); err != nil {
		return fmt.Errorf("notion create page: %w", err)
	}

	for len(rest) > 0 {
		n := min(len(rest), notionMaxChildren)
		body := map[string]any{"children": rest[:n]}
		if err := w.do(ctx, http.MethodPatch, "/v1/blocks/"+page.ID+"/children", body, nil); err != nil {
			return fmt.Errorf("notion append blocks to %s: %w", page.ID, err)
		}
		rest = rest[n:]
	}

	w.logger.Debug("notion page created", "page_id", page.ID, "url", page.URL, "blocks", len(blocks))
	return nil
}

func pageProperties(note domain.NoteRecord) map[string]any {
	props := map[string]any{
		PropName:    map[string]any{"title": richText(clip(note.Title))},
		PropSummary: map[string]any{"rich_text": richText(clip(note.Digest))},
		PropDate:    map[string]any{"date": map[string]any{"start": note.CreatedAt.Format(time.RFC3339)}},
		PropType:    map[string]any{"select": map[string]any{"name": note.NoteType}},
	}
	if note.SourceURL != "" {
		props[PropURL] = map[string]any{"url": note.SourceURL}
	}
	if note.SenderID != "" {
		props[PropUserID] = map[string]any{"rich_text": richText(note.SenderID)}
	}
	if note.MediaLink != "" {
		props[PropMedia] = map[string]any{"url": note.MediaLink}
	}
	return props
}

// clip keeps s within the rich text limit.
func clip(s string) string {
	if utf8.RuneCountInString(s) <= notionMaxText {
		return s
	}
	return string([]rune(s)[:notionMaxText-1]) + "…"
}

func (w *NotionWriter) do(ctx context.Context, method, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)
	httpReq.Header.Set("Notion-Version", notionAPIVersion)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
