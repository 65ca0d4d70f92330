// Package storage uploads original media to Google Drive so notes can
// link back to them.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Drive implements domain.FileUploader.
type Drive struct {
	service  *drive.Service
	folderID string
	logger   *slog.Logger
}

type DriveConfig struct {
	CredentialsFile string // service account JSON
	FolderID        string
	// Options replace the credentials file when set; tests point the
	// client at a local server this way.
	Options []option.ClientOption
	Logger  *slog.Logger
}

func NewDrive(ctx context.Context, cfg DriveConfig) (*Drive, error) {
	opts := cfg.Options
	if len(opts) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, errors.New("drive credentials file is required")
		}
		opts = []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(drive.DriveFileScope),
		}
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	if cfg.FolderID == "" {
		cfg.FolderID = "root"
	}
	return &Drive{service: svc, folderID: cfg.FolderID, logger: cfg.Logger}, nil
}

// Upload stores data in the configured folder, makes it readable by anyone
// with the link and returns that link.
func (d *Drive) Upload(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	file, err := d.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{d.folderID},
	}).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload %s: %w", name, err)
	}

	_, err = d.service.Permissions.Create(file.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive share %s: %w", file.Id, err)
	}

	d.logger.Debug("media uploaded", "file_id", file.Id, "bytes", len(data))
	return file.WebViewLink, nil
}
