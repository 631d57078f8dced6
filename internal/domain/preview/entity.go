// internal/domain/preview/entity.go
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidTrack = errors.New("preview: invalid track")
	ErrNotFound     = errors.New("preview: not found")
)

// Track references one streamable preview clip.
type Track struct {
	AlbumID string
	TrackID string
}

func NewTrack(albumID, trackID string) (Track, error) {
	t := Track{AlbumID: strings.TrimSpace(albumID), TrackID: strings.TrimSpace(trackID)}
	if t.AlbumID == "" || t.TrackID == "" {
		return Track{}, ErrInvalidTrack
	}
	if strings.ContainsAny(t.AlbumID+t.TrackID, "/\\") || strings.Contains(t.AlbumID+t.TrackID, "..") {
		return Track{}, ErrInvalidTrack
	}
	return t, nil
}

// ObjectKey: previews/<albumId>/<trackId>.mp3
func (t Track) ObjectKey() string {
	return fmt.Sprintf("previews/%s/%s.mp3", t.AlbumID, t.TrackID)
}

func (t Track) String() string {
	return t.AlbumID + "/" + t.TrackID
}

// Object is an opened preview stream.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Repository opens preview objects for reading.
type Repository interface {
	Open(ctx context.Context, t Track) (Object, error)
}
