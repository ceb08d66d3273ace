// Package blob removes sheet images from object storage.
package blob

import (
	"context"
	"net/url"
	"strings"
)

// DefaultBucket holds the sheet images.
const DefaultBucket = "sheets"

// Remover deletes stored objects by key.
type Remover interface {
	Remove(ctx context.Context, key string) error
}

// Noop discards removals. It is used when no object store is configured.
type Noop struct{}

// Remove implements Remover.
func (Noop) Remove(context.Context, string) error { return nil }

// KeyFromImageURL derives the object key of a legacy row that only recorded a
// public image URL: the path after the bucket segment, or the last segment
// when the bucket does not appear.
func KeyFromImageURL(imageURL, bucket string) string {
	if imageURL == "" {
		return ""
	}
	path := imageURL
	if u, err := url.Parse(imageURL); err == nil && u.Path != "" {
		path = u.Path
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg == bucket && i+1 < len(segments) {
			key := strings.Join(segments[i+1:], "/")
			if unescaped, err := url.PathUnescape(key); err == nil {
				return unescaped
			}
			return key
		}
	}
	last := segments[len(segments)-1]
	if unescaped, err := url.PathUnescape(last); err == nil {
		return unescaped
	}
	return last
}
