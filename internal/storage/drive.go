package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveStorage uploads artifacts into a Google Drive folder.
type DriveStorage struct {
	srv      *drive.Service
	folderID string
}

func NewDriveStorage(ctx context.Context, credentialsJSON, folderID string) (*DriveStorage, error) {
	// Parse credentials from JSON
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	// If no folder ID is provided, use "root"
	if folderID == "" {
		folderID = "root"
	}
	return &DriveStorage{srv: srv, folderID: folderID}, nil
}

// UploadObject creates a file named after the last key segment and returns its web link.
func (s *DriveStorage) UploadObject(ctx context.Context, key, contentType string, data []byte) (string, error) {
	file := &drive.File{
		Name:     path.Base(key),
		MimeType: contentType,
		Parents:  []string{s.folderID},
	}
	created, err := s.srv.Files.Create(file).
		Media(bytes.NewReader(data)).
		Fields("id, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload %s failed: %w", key, err)
	}
	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return "https://drive.google.com/file/d/" + created.Id, nil
}

func (s *DriveStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", s.folderID)
	if prefix != "" {
		q += fmt.Sprintf(" and name contains '%s'", path.Base(prefix))
	}

	result, err := s.srv.Files.List().
		Q(q).
		Fields("files(id, name, size)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	results := make([]ObjectInfo, 0, len(result.Files))
	for _, f := range result.Files {
		results = append(results, ObjectInfo{Key: f.Name, Size: f.Size})
	}
	return results, nil
}

var _ ObjectStorage = (*DriveStorage)(nil)
