package models

// Headers exchanged between the sync client and the blob server.
// IntegrityHashHeader carries a keyed HMAC over the raw body;
// EntityHashHeader carries the content hash of the entity a blob
// encodes, which the server records in its artifact index and echoes
// in listings.
const (
	IntegrityHashHeader = "HashSHA256"
	EntityHashHeader    = "X-Entity-Hash"
)

// MetadataListResponse is returned by the blob server's listing
// endpoint. The client uses it to build the remote side of the
// comparison without downloading any entity content.
type MetadataListResponse struct {
	// Items is the metadata descriptor of every stored artifact.
	Items []SyncMetadata `json:"items"`

	// Length is the total number of entries in Items. Provided so the
	// client can pre-allocate or validate the response without
	// iterating the slice.
	Length int `json:"length"`
}
