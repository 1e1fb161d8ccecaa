// Package entity provides an in-memory, insertion-ordered collection that is
// hydrated from and flushed back to a gateway as one full snapshot.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskbook/internal/core/gateway"
	"github.com/colonyops/taskbook/internal/core/logging"
)

// ErrNotPersisted is returned when a change was applied in memory but the
// snapshot could not be written. The in-memory change is not rolled back.
var ErrNotPersisted = errors.New("entity: change applied in memory but not persisted")

// Entity is a record that can be stored in a Store.
type Entity[T any] interface {
	EntityID() string
	Clone() T
}

// Codec converts between a record and its stored JSON form. Decode is
// expected to reject records that violate the domain invariants.
type Codec[T any] interface {
	Encode(v T) (json.RawMessage, error)
	Decode(raw json.RawMessage) (T, error)
}

// Store holds one entity collection. It is not safe for concurrent use.
type Store[T Entity[T]] struct {
	gw      *gateway.Gateway
	name    string
	codec   Codec[T]
	order   []string
	items   map[string]T
	skipped int
	log     zerolog.Logger
}

// New loads the named collection from gw. Records that fail to decode, lack
// an id, or repeat an earlier id are logged and skipped.
func New[T Entity[T]](ctx context.Context, gw *gateway.Gateway, name string, codec Codec[T], log zerolog.Logger) *Store[T] {
	s := &Store[T]{
		gw:    gw,
		name:  name,
		codec: codec,
		items: make(map[string]T),
		log:   logging.With(log, "entity-store").With().Str("entity", name).Logger(),
	}

	raws := gateway.Load(ctx, gw, name, []json.RawMessage{})
	for i, raw := range raws {
		v, err := codec.Decode(raw)
		if err != nil {
			s.skipped++
			s.log.Warn().Err(err).Int("index", i).Msg("skipping corrupt record")
			continue
		}

		id := v.EntityID()
		if id == "" {
			s.skipped++
			s.log.Warn().Int("index", i).Msg("skipping record without id")
			continue
		}
		if _, dup := s.items[id]; dup {
			s.skipped++
			s.log.Warn().Int("index", i).Str("id", id).Msg("skipping duplicate record")
			continue
		}

		s.order = append(s.order, id)
		s.items[id] = v
	}

	s.log.Debug().Int("loaded", len(s.order)).Int("skipped", s.skipped).Msg("collection hydrated")
	return s
}

// Name returns the entity collection name.
func (s *Store[T]) Name() string { return s.name }

// Len returns the number of records.
func (s *Store[T]) Len() int { return len(s.order) }

// Skipped returns how many stored records were dropped during hydration.
func (s *Store[T]) Skipped() int { return s.skipped }

// Has reports whether id is present.
func (s *Store[T]) Has(id string) bool {
	_, ok := s.items[id]
	return ok
}

// FindByID returns a copy of the record with the given id.
func (s *Store[T]) FindByID(id string) (T, bool) {
	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return v.Clone(), true
}

// FindAll returns copies of every record in insertion order.
func (s *Store[T]) FindAll() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].Clone())
	}
	return out
}

// Find returns a copy of the first record, in insertion order, for which
// match returns true.
func (s *Store[T]) Find(match func(T) bool) (T, bool) {
	for _, id := range s.order {
		if v := s.items[id]; match(v) {
			return v.Clone(), true
		}
	}
	var zero T
	return zero, false
}

// Filter returns copies of every record for which keep returns true.
func (s *Store[T]) Filter(keep func(T) bool) []T {
	var out []T
	for _, id := range s.order {
		if v := s.items[id]; keep(v) {
			out = append(out, v.Clone())
		}
	}
	return out
}

// Put inserts or replaces v and flushes the collection. New records are
// appended to the insertion order; replaced records keep their position.
func (s *Store[T]) Put(ctx context.Context, v T) error {
	id := v.EntityID()
	if id == "" {
		return fmt.Errorf("put %s: empty id", s.name)
	}

	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = v.Clone()

	return s.Flush(ctx)
}

// PutAll inserts or replaces every record and flushes once.
func (s *Store[T]) PutAll(ctx context.Context, vs ...T) error {
	for _, v := range vs {
		if v.EntityID() == "" {
			return fmt.Errorf("put %s: empty id", s.name)
		}
	}
	for _, v := range vs {
		id := v.EntityID()
		if _, exists := s.items[id]; !exists {
			s.order = append(s.order, id)
		}
		s.items[id] = v.Clone()
	}
	return s.Flush(ctx)
}

// Delete removes id and flushes the collection. It reports whether the
// record was present; nothing is flushed when it was not.
func (s *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	return s.Remove(ctx, id)
}

// Remove deletes id, replaces every record in replace, and flushes once. It
// reports whether id was present; nothing changes and nothing is flushed
// when it was not. Replacements must carry a non-empty id other than id.
func (s *Store[T]) Remove(ctx context.Context, id string, replace ...T) (bool, error) {
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	for _, v := range replace {
		if rid := v.EntityID(); rid == "" || rid == id {
			return false, fmt.Errorf("remove %s: invalid replacement id %q", s.name, rid)
		}
	}

	delete(s.items, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	for _, v := range replace {
		rid := v.EntityID()
		if _, exists := s.items[rid]; !exists {
			s.order = append(s.order, rid)
		}
		s.items[rid] = v.Clone()
	}

	return true, s.Flush(ctx)
}

// Flush writes the entire collection through the gateway.
func (s *Store[T]) Flush(ctx context.Context) error {
	snapshot, err := s.Snapshot()
	if err != nil {
		return fmt.Errorf("flush %s: %w", s.name, errors.Join(ErrNotPersisted, err))
	}

	if !s.gw.Save(ctx, s.name, snapshot) {
		return fmt.Errorf("flush %s: %w", s.name, ErrNotPersisted)
	}
	return nil
}

// Snapshot encodes every record in insertion order.
func (s *Store[T]) Snapshot() ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(s.order))
	for _, id := range s.order {
		raw, err := s.codec.Encode(s.items[id])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", id, err)
		}
		out = append(out, raw)
	}
	return out, nil
}
