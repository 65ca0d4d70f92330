package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const maxMediaBytes = 25 << 20

// LineClient sends replies and downloads message content. It implements
// domain.ReplySender and domain.MediaFetcher.
type LineClient struct {
	api    *messaging_api.MessagingApiAPI
	blob   *messaging_api.MessagingApiBlobAPI
	logger *slog.Logger
}

type LineClientConfig struct {
	AccessToken  string
	Endpoint     string // messaging API base, for tests
	BlobEndpoint string // content API base, for tests
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

func NewLineClient(cfg LineClientConfig) (*LineClient, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("line access token is required")
	}

	var apiOpts []messaging_api.MessagingApiAPIOption
	var blobOpts []messaging_api.MessagingApiBlobAPIOption
	if cfg.HTTPClient != nil {
		apiOpts = append(apiOpts, messaging_api.WithHTTPClient(cfg.HTTPClient))
		blobOpts = append(blobOpts, messaging_api.WithBlobHTTPClient(cfg.HTTPClient))
	}
	if cfg.Endpoint != "" {
		apiOpts = append(apiOpts, messaging_api.WithEndpoint(cfg.Endpoint))
	}
	if cfg.BlobEndpoint != "" {
		blobOpts = append(blobOpts, messaging_api.WithBlobEndpoint(cfg.BlobEndpoint))
	}

	api, err := messaging_api.NewMessagingApiAPI(cfg.AccessToken, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("line messaging client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(cfg.AccessToken, blobOpts...)
	if err != nil {
		return nil, fmt.Errorf("line blob client: %w", err)
	}
	return &LineClient{api: api, blob: blob, logger: cfg.Logger}, nil
}

// Reply sends text as the single reply allowed for replyToken.
func (l *LineClient) Reply(ctx context.Context, replyToken, text string) error {
	_, err := l.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("line reply: %w", err)
	}
	return nil
}

// FetchContent downloads the binary content of a voice or image message.
func (l *LineClient) FetchContent(ctx context.Context, messageID string) ([]byte, string, error) {
	resp, err := l.blob.WithContext(ctx).GetMessageContent(messageID)
	if err != nil {
		return nil, "", fmt.Errorf("line content %s: %w", messageID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("line content %s: HTTP %d", messageID, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read content %s: %w", messageID, err)
	}
	l.logger.Debug("message content fetched", "message_id", messageID, "bytes", len(data))
	return data, resp.Header.Get("Content-Type"), nil
}
