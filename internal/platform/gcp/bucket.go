package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

// BucketService re-hosts externally generated images in the atom bucket and
// serves stable paths for them.
type BucketService interface {
	// UploadFromURL fetches sourceURL and writes it under key, returning the
	// stored object key.
	UploadFromURL(ctx context.Context, sourceURL, key string) (string, error)
	DeleteFile(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	httpClient    *http.Client
	bucketName    string
	cdnDomain     string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := os.Getenv("ATOM_GCS_BUCKET_NAME")
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var ATOM_GCS_BUCKET_NAME")
	}
	cdnDomain := os.Getenv("ATOM_CDN_DOMAIN")

	ctx := context.Background()
	var opts []option.ClientOption
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"bucket", bucketName,
		"cdn_domain", cdnDomain,
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		httpClient:    &http.Client{Timeout: 2 * time.Minute},
		bucketName:    bucketName,
		cdnDomain:     strings.TrimRight(strings.TrimSpace(cdnDomain), "/"),
	}, nil
}

func (bs *bucketService) UploadFromURL(ctx context.Context, sourceURL, key string) (string, error) {
	if sourceURL == "" {
		return "", fmt.Errorf("source url required")
	}
	if key == "" {
		return "", fmt.Errorf("object key required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build source request: %w", err)
	}
	resp, err := bs.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch source: status=%d", resp.StatusCode)
	}

	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object: %w", err)
	}

	bs.log.Debug("Uploaded object from URL", "key", key, "source", sourceURL)
	return key, nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
	if err := bs.storageClient.Bucket(bs.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, escapeKey(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, escapeKey(key))
}

// escapeKey escapes each path segment, keeping the slashes readable.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
