// Package gateway stores namespaced, versioned snapshots on top of a raw
// kv.Store and keeps a ledger of when each entity collection was last written.
//
// The gateway never returns errors to its callers. Failures of the
// underlying store are logged and reported as false or as the caller's
// default value.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/colonyops/taskbook/internal/core/kv"
	"github.com/colonyops/taskbook/internal/core/logging"
)

const (
	DefaultNamespace = "taskManagementApp"
	DefaultVersion   = "2.0"

	probeKey = "__storage_test__"
)

// Options configures a Gateway. Zero values fall back to the defaults.
type Options struct {
	Namespace string
	Version   string
	Now       func() time.Time
}

// Gateway is the only component that touches the raw key-value store.
type Gateway struct {
	store     kv.Store
	namespace string
	version   string
	now       func() time.Time
	available bool
	log       zerolog.Logger
}

// New probes store and initializes the metadata ledger. A nil store or a
// failed probe yields an unavailable gateway whose operations are no-ops.
func New(ctx context.Context, store kv.Store, opts Options, log zerolog.Logger) *Gateway {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := &Gateway{
		store:     store,
		namespace: opts.Namespace,
		version:   opts.Version,
		now:       opts.Now,
		log:       logging.With(log, "gateway").With().Str("namespace", opts.Namespace).Logger(),
	}

	if store == nil {
		g.log.Warn().Msg("no key-value store configured, persistence disabled")
		return g
	}

	if err := g.probe(ctx); err != nil {
		g.log.Warn().Err(err).Msg("key-value store unavailable, persistence disabled")
		return g
	}
	g.available = true

	if _, ok := g.Metadata(ctx); !ok {
		meta := Metadata{
			Version:   g.version,
			CreatedAt: g.now().UTC(),
			Entities:  map[string]EntityMeta{},
		}
		if _, ok := g.write(ctx, MetadataEntity, meta); !ok {
			g.log.Error().Msg("failed to initialize metadata ledger")
		}
	}

	return g
}

func (g *Gateway) probe(ctx context.Context) error {
	if err := g.store.Set(ctx, probeKey, []byte("test")); err != nil {
		return err
	}
	return g.store.Delete(ctx, probeKey)
}

// Available reports whether the underlying store passed the startup probe.
func (g *Gateway) Available() bool {
	return g.available
}

// Namespace returns the key prefix used by this gateway.
func (g *Gateway) Namespace() string {
	return g.namespace
}

// Version returns the schema version written into every envelope.
func (g *Gateway) Version() string {
	return g.version
}

// Key returns the storage key of an entity collection.
func (g *Gateway) Key(entity string) string {
	return g.namespace + "_" + entity
}

// Save wraps snapshot in an envelope and writes it. Writes other than the
// ledger itself also record the entity in the metadata ledger; a ledger
// failure is logged without failing the save.
func (g *Gateway) Save(ctx context.Context, entity string, snapshot any) bool {
	if !g.available {
		return false
	}

	ts, ok := g.write(ctx, entity, snapshot)
	if !ok {
		return false
	}

	if entity != MetadataEntity {
		g.touch(ctx, entity, ts)
	}
	return true
}

// Load returns the unwrapped data stored for entity, or def when the gateway
// is unavailable or the value is missing or unparsable.
func Load[T any](ctx context.Context, g *Gateway, entity string, def T) T {
	raw, ok := g.loadData(ctx, entity)
	if !ok {
		return def
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		g.log.Warn().Err(err).Str("entity", entity).Msg("stored data does not match expected shape")
		return def
	}
	return out
}

// Remove deletes the entity collection and its ledger entry.
func (g *Gateway) Remove(ctx context.Context, entity string) bool {
	if !g.available {
		return false
	}

	key := g.Key(entity)
	if err := g.store.Delete(ctx, key); err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("failed to remove entity")
		return false
	}

	if entity == MetadataEntity {
		return true
	}

	meta, ok := g.Metadata(ctx)
	if !ok {
		return true
	}
	if _, exists := meta.Entities[entity]; exists {
		delete(meta.Entities, entity)
		if _, ok := g.write(ctx, MetadataEntity, meta); !ok {
			g.log.Error().Str("entity", entity).Msg("failed to drop ledger entry")
		}
	}
	return true
}

// Metadata reads the ledger.
func (g *Gateway) Metadata(ctx context.Context) (Metadata, bool) {
	raw, ok := g.loadData(ctx, MetadataEntity)
	if !ok {
		return Metadata{}, false
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		g.log.Warn().Err(err).Msg("metadata ledger is unparsable")
		return Metadata{}, false
	}
	if meta.Entities == nil {
		meta.Entities = map[string]EntityMeta{}
	}
	return meta, true
}

// Export bundles every envelope stored under the namespace. When patterns
// are given only keys matching at least one doublestar glob are included.
// Values that are not valid envelopes are skipped.
func (g *Gateway) Export(ctx context.Context, patterns ...string) (Bundle, bool) {
	if !g.available {
		return Bundle{}, false
	}

	keys, err := g.store.ListKeys(ctx, g.namespace+"_")
	if err != nil {
		g.log.Error().Err(err).Msg("failed to list keys for export")
		return Bundle{}, false
	}

	bundle := Bundle{
		AppName:    g.namespace,
		Version:    g.version,
		ExportedAt: g.now().UTC(),
		Data:       make(map[string]Envelope, len(keys)),
	}

	for _, key := range keys {
		if !g.matches(key, patterns) {
			continue
		}

		raw, err := g.store.Get(ctx, key)
		if err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("skipping unreadable key in export")
			continue
		}

		env, ok := decodeEnvelope(raw)
		if !ok {
			g.log.Warn().Str("key", key).Msg("skipping key without a valid envelope in export")
			continue
		}
		bundle.Data[key] = env
	}

	return bundle, true
}

func (g *Gateway) matches(key string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		ok, err := doublestar.Match(p, key)
		if err != nil {
			g.log.Warn().Err(err).Str("pattern", p).Msg("invalid export pattern")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func (g *Gateway) write(ctx context.Context, entity string, snapshot any) (time.Time, bool) {
	key := g.Key(entity)

	data, err := json.Marshal(snapshot)
	if err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("failed to serialize snapshot")
		return time.Time{}, false
	}

	ts := g.now().UTC()
	bits, err := json.Marshal(Envelope{Data: data, Timestamp: ts, Version: g.version})
	if err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("failed to serialize envelope")
		return time.Time{}, false
	}

	if err := g.store.Set(ctx, key, bits); err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("failed to write snapshot")
		return time.Time{}, false
	}
	return ts, true
}

func (g *Gateway) touch(ctx context.Context, entity string, ts time.Time) {
	meta, ok := g.Metadata(ctx)
	if !ok {
		meta = Metadata{
			Version:   g.version,
			CreatedAt: ts,
			Entities:  map[string]EntityMeta{},
		}
	}
	meta.Entities[entity] = EntityMeta{LastUpdated: ts, Version: g.version}

	if _, ok := g.write(ctx, MetadataEntity, meta); !ok {
		g.log.Error().Str("entity", entity).Msg("failed to update metadata ledger")
	}
}

func (g *Gateway) loadData(ctx context.Context, entity string) (json.RawMessage, bool) {
	if !g.available {
		return nil, false
	}

	key := g.Key(entity)
	raw, err := g.store.Get(ctx, key)
	if kv.IsNotFound(err) {
		return nil, false
	}
	if err != nil {
		g.log.Error().Err(err).Str("key", key).Msg("failed to read snapshot")
		return nil, false
	}

	env, ok := decodeEnvelope(raw)
	if !ok {
		g.log.Warn().Str("key", key).Msg("stored value is not a valid envelope")
		return nil, false
	}
	if bytes.Equal(env.Data, []byte("null")) {
		return nil, false
	}
	return env.Data, true
}
