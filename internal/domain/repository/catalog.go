package repository

import (
	"context"

	"github.com/hszk-dev/musicgate/internal/domain/model"
)

// MusicCatalog is the remote metadata provider for browse/search listings.
// It is a plain remote-procedure client; its results flow through the
// enrichment pipeline before leaving the gateway.
type MusicCatalog interface {
	// Search queries the provider. filter narrows the result kind
	// (songs, videos, albums, artists, playlists); empty means all.
	Search(ctx context.Context, query, filter string, limit int) ([]model.TrackItem, error)
}
