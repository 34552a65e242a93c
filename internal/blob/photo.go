package blob

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPhotoBytes caps profile photo uploads.
const MaxPhotoBytes = 2 << 20 // 2 MiB

// ErrPhotoTooLarge is returned when an upload exceeds MaxPhotoBytes.
var ErrPhotoTooLarge = errors.New("blob: photo exceeds size limit")

// ErrNotImage is returned when an upload's content type is not an image.
var ErrNotImage = errors.New("blob: content type is not an image")

var photoExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

// ValidatePhoto checks an upload's content type and size against the photo
// constraints. Size may be -1 when unknown ahead of upload; callers then
// enforce the cap while streaming.
func ValidatePhoto(contentType string, size int64) error {
	if _, ok := photoExtensions[normalizeContentType(contentType)]; !ok {
		return fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}
	if size > MaxPhotoBytes {
		return fmt.Errorf("%w: %d bytes", ErrPhotoTooLarge, size)
	}
	return nil
}

// PhotoKey derives the object key for a baby's profile photo.
func PhotoKey(babyID, contentType string) string {
	ext, ok := photoExtensions[normalizeContentType(contentType)]
	if !ok {
		ext = "bin"
	}
	return fmt.Sprintf("babies/%s/profile.%s", babyID, ext)
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
