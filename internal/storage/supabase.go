package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"

	"gamecre8/internal/assets"
	"gamecre8/internal/domain"
)

// DefaultListPageSize is the page size used for bucket listings.
const DefaultListPageSize = 1000

// BucketAPI is the subset of the Supabase Storage client used here.
// *storage_go.Client satisfies it.
type BucketAPI interface {
	ListFiles(bucketID, queryPath string, options storage_go.FileSearchOptions) ([]storage_go.FileObject, error)
	CreateSignedUrl(bucketID, filePath string, expiresIn int) (storage_go.SignedUrlResponse, error)
	DownloadFile(bucketID, filePath string, urlOptions ...storage_go.UrlOptions) ([]byte, error)
}

// SupabaseBucket reads one Supabase Storage bucket. It lists folders for the
// asset scanner, downloads small objects such as the seed prompt list and
// signs asset URLs for generated games.
type SupabaseBucket struct {
	api       BucketAPI
	bucket    string
	pageSize  int
	signedTTL time.Duration
}

// NewSupabaseBucket wraps api for bucket. signedTTL bounds how long signed
// asset URLs stay valid.
func NewSupabaseBucket(api BucketAPI, bucket string, signedTTL time.Duration) *SupabaseBucket {
	if signedTTL <= 0 {
		signedTTL = 24 * time.Hour
	}
	return &SupabaseBucket{
		api:       api,
		bucket:    bucket,
		pageSize:  DefaultListPageSize,
		signedTTL: signedTTL,
	}
}

// List returns the direct children of prefix. Storage reports folders as
// objects without metadata, so any entry lacking a numeric metadata.size is
// treated as a folder. Listings longer than a page are fetched page by page.
func (b *SupabaseBucket) List(ctx context.Context, prefix string) ([]assets.Entry, error) {
	var entries []assets.Entry
	for offset := 0; ; offset += b.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := b.api.ListFiles(b.bucket, prefix, storage_go.FileSearchOptions{
			Limit:         b.pageSize,
			Offset:        offset,
			SortByOptions: storage_go.SortBy{Column: "name", Order: "asc"},
		})
		if err != nil {
			return nil, fmt.Errorf("storage: list %s/%s: %w", b.bucket, prefix, err)
		}
		for _, obj := range page {
			entries = append(entries, assets.Entry{Name: obj.Name, Size: objectSize(obj.Metadata)})
		}
		if len(page) < b.pageSize {
			return entries, nil
		}
	}
}

// Read downloads the object at key.
func (b *SupabaseBucket) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := b.api.DownloadFile(b.bucket, strings.TrimLeft(key, "/"))
	if err != nil {
		if isObjectMissing(err) {
			return nil, fmt.Errorf("storage: %s/%s: %w", b.bucket, key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: download %s/%s: %w", b.bucket, key, err)
	}
	return data, nil
}

func isObjectMissing(err error) bool {
	var se *storage_go.StorageError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusNotFound || strings.Contains(strings.ToLower(se.Message), "not found")
}

// ResolveURL returns a time-limited signed URL for the asset at path.
func (b *SupabaseBucket) ResolveURL(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := b.api.CreateSignedUrl(b.bucket, strings.TrimLeft(path, "/"), int(b.signedTTL/time.Second))
	if err != nil {
		return "", fmt.Errorf("storage: sign %s/%s: %w", b.bucket, path, err)
	}
	return resp.SignedURL, nil
}

func objectSize(metadata any) *int64 {
	m, ok := metadata.(map[string]any)
	if !ok {
		return nil
	}
	var size int64
	switch v := m["size"].(type) {
	case float64:
		size = int64(v)
	case int64:
		size = v
	case int:
		size = int64(v)
	default:
		return nil
	}
	return &size
}

// PublicURLResolver builds plain URLs under a public base, for buckets or
// directories served without signing.
type PublicURLResolver struct {
	BaseURL string
}

// ResolveURL joins the base URL and the escaped asset path.
func (r PublicURLResolver) ResolveURL(_ context.Context, path string) (string, error) {
	base := strings.TrimRight(r.BaseURL, "/")
	if base == "" {
		return "", fmt.Errorf("storage: public base url is not configured")
	}
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segments, "/"), nil
}

var (
	_ assets.Lister = (*SupabaseBucket)(nil)
	_ BucketAPI     = (*storage_go.Client)(nil)
)
