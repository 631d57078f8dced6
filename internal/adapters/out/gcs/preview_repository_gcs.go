// internal/adapters/out/gcs/preview_repository_gcs.go
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	previewdom "musicvault/internal/domain/preview"
)

// Default bucket for preview clips.
const defaultPreviewBucket = "musicvault_development_previews"

// PreviewRepositoryGCS streams preview clips straight from GCS.
// Object name: previews/<albumId>/<trackId>.mp3
type PreviewRepositoryGCS struct {
	Client *storage.Client
	Bucket string
}

var _ previewdom.Repository = (*PreviewRepositoryGCS)(nil)

func NewPreviewRepositoryGCS(client *storage.Client, bucket string) *PreviewRepositoryGCS {
	b := strings.TrimSpace(bucket)
	if b == "" {
		b = defaultPreviewBucket
	}
	return &PreviewRepositoryGCS{Client: client, Bucket: b}
}

func (r *PreviewRepositoryGCS) Open(ctx context.Context, t previewdom.Track) (previewdom.Object, error) {
	if r == nil || r.Client == nil {
		return previewdom.Object{}, errors.New("PreviewRepositoryGCS: nil storage client")
	}

	rd, err := r.Client.Bucket(r.Bucket).Object(t.ObjectKey()).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return previewdom.Object{}, previewdom.ErrNotFound
		}
		return previewdom.Object{}, fmt.Errorf("gcs: open %s/%s: %w", r.Bucket, t.ObjectKey(), err)
	}

	ct := strings.TrimSpace(rd.Attrs.ContentType)
	if ct == "" {
		ct = "audio/mpeg"
	}
	return previewdom.Object{
		Body:        rd,
		ContentType: ct,
		Size:        rd.Attrs.Size,
	}, nil
}
