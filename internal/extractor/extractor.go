package extractor

import (
	"context"
)

// noCodec is the sentinel the extractor uses for a missing codec.
// An audio-only format has an audio codec and a video codec of "none".
const noCodec = "none"

// Format is a single candidate stream in an extraction result.
type Format struct {
	URL        string `json:"url"`
	ACodec     string `json:"acodec"`
	VCodec     string `json:"vcodec"`
	FormatNote string `json:"format_note"`
}

// IsAudioOnly reports whether this format carries audio and no video.
func (f Format) IsAudioOnly() bool {
	return f.ACodec != "" && f.ACodec != noCodec && f.VCodec == noCodec
}

// MediaInfo is the extraction result for one video.
type MediaInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`

	Thumbnail string `json:"thumbnail"`

	// URL is a direct top-level stream URL, present for some single-format
	// extractions. Used as the last resort after both format lists.
	URL string `json:"url"`

	// Formats is the primary candidate list; AdaptiveFormats is the
	// secondary list consulted when Formats has no audio-only entry.
	Formats         []Format `json:"formats"`
	AdaptiveFormats []Format `json:"adaptive_formats"`
}

// Extractor turns a video identifier into candidate audio streams.
// It is an external capability: slow, rate-limited upstream, and errors
// carry no structure beyond their message text.
type Extractor interface {
	// Extract fetches stream candidates and metadata for a video,
	// requesting the best available audio-only format. The retry and
	// timeout policy is the implementation's own.
	Extract(ctx context.Context, videoID string) (*MediaInfo, error)
}
