package model

import "regexp"

// TrackMetadata is the durable slice of an extraction result. It is
// immutable once written to cache and only ever overwritten wholesale.
type TrackMetadata struct {
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// ResolvedStream is the output of a single stream resolution.
// FromCache reports whether the result was served without invoking
// the extractor, which callers use for observability and tests.
type ResolvedStream struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	FromCache bool   `json:"from_cache"`
}

// videoIDPattern matches the 11-character YouTube video ID alphabet.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsValidVideoID reports whether id looks like a well-formed video identifier.
// Validation happens at the API boundary so malformed IDs never reach the
// extractor.
func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// WatchURL builds the canonical watch URL for a video identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
