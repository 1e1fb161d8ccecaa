package gateway

import (
	"encoding/json"
	"time"
)

// MetadataEntity is the reserved entity name of the metadata ledger.
const MetadataEntity = "_metadata"

// Envelope wraps every persisted snapshot.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Version   string          `json:"version"`
}

// Metadata is the ledger stored under "{namespace}__metadata".
type Metadata struct {
	Version   string                `json:"version"`
	CreatedAt time.Time             `json:"createdAt"`
	Entities  map[string]EntityMeta `json:"entities"`
}

// EntityMeta records the last write of one entity collection.
type EntityMeta struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Version     string    `json:"version"`
}

// Bundle is the result of an export: every envelope stored under the
// namespace, keyed by its full storage key.
type Bundle struct {
	AppName    string              `json:"appName"`
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exportedAt"`
	Data       map[string]Envelope `json:"data"`
}

func decodeEnvelope(raw []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false
	}
	if len(env.Data) == 0 {
		return Envelope{}, false
	}
	return env, true
}
