package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"eventsds/internal/catalog"
	"eventsds/internal/config"
	"eventsds/internal/model"
)

const (
	BandsName   = "bands.json"
	CatalogName = "event_catalog.json"
)

// ErrNotFound means the events phase has not produced the artifact yet.
var ErrNotFound = fmt.Errorf("%w: artifact not found", model.ErrDataContract)

// backend stores named blobs. put is write-once: storing the same bytes
// again succeeds, different bytes fail with ErrArtifactConflict. created
// reports whether this call wrote the blob.
type backend interface {
	put(ctx context.Context, name string, data []byte) (created bool, err error)
	get(ctx context.Context, name string) ([]byte, error)
	remove(ctx context.Context, name string) error
	describe(name string) string
	Close() error
}

// Store persists the band definitions and the event catalog produced by the
// events phase so a later windows phase can reuse them unchanged.
type Store struct {
	b       backend
	created []string
}

// New opens the configured backend. dir is the filesystem location used by
// the fs driver.
func New(ctx context.Context, cfg config.ArtifactsConfig, dir string) (*Store, error) {
	switch cfg.Driver {
	case "", "fs":
		return &Store{b: &fsBackend{dir: dir}}, nil
	case "redis":
		rb, err := newRedisBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Store{b: rb}, nil
	default:
		return nil, model.ConfigErrorf("unknown artifacts driver %q", cfg.Driver)
	}
}

func NewFS(dir string) *Store {
	return &Store{b: &fsBackend{dir: dir}}
}

func (s *Store) Close() error {
	return s.b.Close()
}

func (s *Store) Location(name string) string {
	return s.b.describe(name)
}

func (s *Store) PutBands(ctx context.Context, b *model.Bands) error {
	return s.putJSON(ctx, BandsName, b)
}

func (s *Store) Bands(ctx context.Context) (*model.Bands, error) {
	out := model.NewBands()
	if err := s.getJSON(ctx, BandsName, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) PutCatalog(ctx context.Context, c *catalog.Catalog) error {
	return s.putJSON(ctx, CatalogName, c)
}

func (s *Store) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	out := &catalog.Catalog{}
	if err := s.getJSON(ctx, CatalogName, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) putJSON(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	created, err := s.b.put(ctx, name, append(data, '\n'))
	if created {
		s.created = append(s.created, name)
	}
	return err
}

// Rollback removes the artifacts written through this Store. Artifacts that
// were already present with identical content are left in place.
func (s *Store) Rollback(ctx context.Context) error {
	var err error
	for _, name := range s.created {
		err = multierr.Append(err, s.b.remove(ctx, name))
	}
	s.created = nil
	return err
}

func (s *Store) getJSON(ctx context.Context, name string, v any) error {
	data, err := s.b.get(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return model.DataErrorf("decode %s: %v", s.b.describe(name), err)
	}
	return nil
}

func conflict(existing, data []byte, where string) error {
	if bytes.Equal(existing, data) {
		return nil
	}
	return fmt.Errorf("%w: %s already holds different content", model.ErrArtifactConflict, where)
}
