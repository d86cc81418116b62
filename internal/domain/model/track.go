package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Thumbnail is a candidate artwork image with its pixel dimensions.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// TrackItem is a normalized content item (song, search hit, playlist track)
// flowing through the enrichment pipeline. Upstream payloads are loosely
// shaped, so fields the gateway does not recognize are carried through Extra
// and re-emitted on marshal; enrichment must never drop a field it did not
// explicitly overwrite.
type TrackItem struct {
	VideoID    string
	Title      string
	Artist     string
	Duration   int
	Thumbnail  string
	Thumbnails []Thumbnail
	StreamURL  string

	// Extra holds upstream fields with no dedicated struct field.
	Extra map[string]json.RawMessage
}

// Known upstream keys. Upstream is inconsistent about identifier casing,
// so both "videoId" and "video_id" are accepted on unmarshal.
const (
	keyVideoID      = "videoId"
	keyVideoIDSnake = "video_id"
	keyTitle        = "title"
	keyArtist       = "artist"
	keyDuration     = "duration"
	keyThumbnail    = "thumbnail"
	keyThumbnails   = "thumbnails"
	keyStreamURL    = "stream_url"
)

// UnmarshalJSON converts an upstream item bag into a TrackItem, keeping
// unrecognized fields in Extra.
func (t *TrackItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal track item: %w", err)
	}

	*t = TrackItem{Extra: make(map[string]json.RawMessage)}

	for key, value := range raw {
		switch key {
		case keyVideoID, keyVideoIDSnake:
			var id string
			if err := json.Unmarshal(value, &id); err == nil && t.VideoID == "" {
				t.VideoID = id
			}
		case keyTitle:
			_ = json.Unmarshal(value, &t.Title)
		case keyArtist:
			_ = json.Unmarshal(value, &t.Artist)
		case keyDuration:
			// Upstream sends either an integer or a float for duration.
			var f float64
			if err := json.Unmarshal(value, &f); err == nil {
				t.Duration = int(f)
			} else {
				t.Extra[key] = value
			}
		case keyThumbnail:
			if err := json.Unmarshal(value, &t.Thumbnail); err != nil {
				t.Extra[key] = value
			}
		case keyThumbnails:
			if err := json.Unmarshal(value, &t.Thumbnails); err != nil {
				t.Extra[key] = value
			}
		case keyStreamURL:
			_ = json.Unmarshal(value, &t.StreamURL)
		default:
			t.Extra[key] = value
		}
	}

	return nil
}

// MarshalJSON re-emits the item with Extra fields merged back in.
// Typed fields win over a stale Extra entry of the same name.
func (t TrackItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+7)
	for key, value := range t.Extra {
		out[key] = value
	}

	if t.VideoID != "" {
		out[keyVideoID] = t.VideoID
	}
	if t.Title != "" {
		out[keyTitle] = t.Title
	}
	if t.Artist != "" {
		out[keyArtist] = t.Artist
	}
	if t.Duration != 0 {
		out[keyDuration] = t.Duration
	}
	if t.Thumbnail != "" {
		out[keyThumbnail] = t.Thumbnail
	}
	if len(t.Thumbnails) > 0 {
		out[keyThumbnails] = t.Thumbnails
	}
	if t.StreamURL != "" {
		out[keyStreamURL] = t.StreamURL
	}

	return json.Marshal(out)
}

// BestThumbnail picks the best artwork for an item:
// largest entry by pixel area from the thumbnails list, then a bare
// thumbnail string, then the first list entry, and finally a
// deterministic medium-quality URL derived from the video identifier.
// The result is only empty when the item carries no identifier at all.
func BestThumbnail(item TrackItem) string {
	if len(item.Thumbnails) > 0 {
		sorted := make([]Thumbnail, len(item.Thumbnails))
		copy(sorted, item.Thumbnails)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Width*sorted[i].Height > sorted[j].Width*sorted[j].Height
		})
		if sorted[0].URL != "" {
			return sorted[0].URL
		}
	}

	if item.Thumbnail != "" {
		return item.Thumbnail
	}

	if len(item.Thumbnails) > 0 && item.Thumbnails[0].URL != "" {
		return item.Thumbnails[0].URL
	}

	if item.VideoID != "" {
		return fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", item.VideoID)
	}

	return ""
}
