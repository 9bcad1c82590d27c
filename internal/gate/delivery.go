package gate

import "context"

// AssetStatus is the processing state of a delivery network asset.
type AssetStatus string

const (
	AssetProcessing AssetStatus = "processing"
	AssetReady      AssetStatus = "ready"
	AssetError      AssetStatus = "error"
)

// DeliveryNetwork ingests approved content from the durable store and serves it.
type DeliveryNetwork interface {
	// CreateAsset asks the network to ingest sourceURI and returns the new asset id.
	CreateAsset(ctx context.Context, sourceURI, title string) (string, error)

	PollStatus(ctx context.Context, assetID string) (AssetStatus, error)

	PlaybackURL(assetID string) string

	// ThumbnailURL returns the conventional thumbnail address for the asset.
	ThumbnailURL(assetID string) string
}
