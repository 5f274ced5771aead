package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"brevity-server/internal/domain"

	storage_go "github.com/supabase-community/storage-go"
)

const reportContentType = "application/pdf"

// SupabaseStorage keeps rendered reports in a Supabase Storage bucket.
type SupabaseStorage struct {
	baseURL       string
	apiKey        string
	bucket        string
	storageClient *storage_go.Client
	logger        domain.Logger
}

// NewStorageService creates a storage client for the bucket. apiKey should be
// the service key so uploads are not subject to bucket policies.
func NewStorageService(baseURL, apiKey, bucket string, logger domain.Logger) *SupabaseStorage {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SupabaseStorage{
		baseURL:       baseURL,
		apiKey:        apiKey,
		bucket:        bucket,
		storageClient: storage_go.NewClient(baseURL+"/storage/v1", apiKey, nil),
		logger:        logger,
	}
}

func (s *SupabaseStorage) Upload(ctx context.Context, path string, file io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	contentType := reportContentType
	upsert := false
	_, err := s.storageClient.UploadFile(s.bucket, path, file, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", domain.ErrStorageFailure, path, err)
	}

	s.logger.Debug("Report uploaded", "bucket", s.bucket, "path", path)
	return nil
}

func (s *SupabaseStorage) Download(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.storageClient.DownloadFile(s.bucket, path)
	if err != nil {
		if isObjectNotFound(err.Error()) {
			return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, path)
		}
		return nil, fmt.Errorf("%w: download %s: %v", domain.ErrStorageFailure, path, err)
	}

	// Error payloads can come back as a JSON body instead of an error.
	if !bytes.HasPrefix(data, pdfSignature) {
		if isObjectNotFound(string(data)) {
			return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, path)
		}
		return nil, fmt.Errorf("%w: download %s: unexpected content", domain.ErrStorageFailure, path)
	}
	return data, nil
}

// Delete removes the object. A missing object is not an error.
func (s *SupabaseStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := s.storageClient.RemoveFile(s.bucket, []string{path})
	if err != nil {
		if isObjectNotFound(err.Error()) {
			s.logger.Warn("Report already absent from storage", "path", path)
			return nil
		}
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorageFailure, path, err)
	}
	if len(removed) == 0 {
		s.logger.Warn("Report already absent from storage", "path", path)
	}
	return nil
}

func isObjectNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not_found") || strings.Contains(msg, "404")
}
