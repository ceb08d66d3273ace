// Package video extracts YouTube video ids from the links stored on songs and
// setlist entries.
package video

import "regexp"

var (
	pathPattern  = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)
	queryPattern = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`)
)

// ID returns the 11 character video id of link, or "" when link is not a
// recognised YouTube URL.
func ID(link string) string {
	if link == "" {
		return ""
	}
	if m := pathPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	if m := queryPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

// EmbedURL returns the embeddable player URL for link.
func EmbedURL(link string) string {
	id := ID(link)
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}

// Effective picks the link that plays for a setlist entry: its override
// when set, otherwise the song's default.
func Effective(override *string, songDefault string) string {
	if override != nil && *override != "" {
		return *override
	}
	return songDefault
}
