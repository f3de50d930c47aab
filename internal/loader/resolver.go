package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// DefaultBiblioCacheSize is used when no cache size is configured.
const DefaultBiblioCacheSize = 4096

// Resolver binds an aggregate's references inside one unit of work.
//
// Taxa are looked up or created and cached by exact value. A taxon created
// while ingesting a row stays pending until the row is kept; Discard forgets
// it after the row's savepoint was rolled back, so a later row creates it
// again instead of pointing at a row that no longer exists.
//
// Bibliography entries are only ever looked up. Found and missing ids are
// both cached.
type Resolver struct {
	tx  store.Tx
	log *slog.Logger

	taxa    map[string]reptile.Taxa
	pending map[string]reptile.Taxa
	biblio  *lru.Cache[string, *reptile.Biblio]

	created int
}

// NewResolver returns a resolver for tx.
func NewResolver(tx store.Tx, cacheSize int, log *slog.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultBiblioCacheSize
	}
	cache, err := lru.New[string, *reptile.Biblio](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("biblio cache: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Resolver{
		tx:      tx,
		log:     log,
		taxa:    make(map[string]reptile.Taxa),
		pending: make(map[string]reptile.Taxa),
		biblio:  cache,
	}, nil
}

// Taxa returns the taxon for value, creating it if absent. An empty value
// has no taxon.
func (r *Resolver) Taxa(ctx context.Context, value string) (*reptile.Taxa, error) {
	if value == "" {
		return nil, nil
	}
	if t, ok := r.taxa[value]; ok {
		return &t, nil
	}
	if t, ok := r.pending[value]; ok {
		return &t, nil
	}

	t, err := r.tx.FindTaxa(ctx, value)
	switch {
	case err == nil:
		r.taxa[value] = t
		return &t, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	t, err = r.tx.CreateTaxa(ctx, value)
	if err != nil {
		return nil, err
	}
	r.pending[value] = t
	return &t, nil
}

// Biblio looks up a bibliography entry. A missing entry returns (nil, nil).
func (r *Resolver) Biblio(ctx context.Context, id string) (*reptile.Biblio, error) {
	if b, ok := r.biblio.Get(id); ok {
		return b, nil
	}

	b, err := r.tx.FindBiblio(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r.biblio.Add(id, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.biblio.Add(id, &b)
	return &b, nil
}

// Resolve sets the aggregate's taxon. The aggregate must not be persisted
// yet.
func (r *Resolver) Resolve(ctx context.Context, rep *reptile.Reptile) error {
	t, err := r.Taxa(ctx, rep.TaxaValue)
	if err != nil {
		return fmt.Errorf("resolve taxa %q: %w", rep.TaxaValue, err)
	}
	rep.Taxa = t
	return nil
}

// LinkBibliography links a persisted aggregate to each bibliography entry
// it references. Repeated ids are linked once; unknown ids are skipped and
// counted as misses.
func (r *Resolver) LinkBibliography(ctx context.Context, rep *reptile.Reptile) (linked, missed int, err error) {
	for _, id := range store.DedupeIDs(rep.BiblioIDs) {
		b, err := r.Biblio(ctx, id)
		if err != nil {
			return linked, missed, fmt.Errorf("find biblio %q: %w", id, err)
		}
		if b == nil {
			r.log.Debug("bibliography reference not found", "bib_id", id, "subspecies", rep.Subspecies1+" "+rep.Subspecies2)
			missed++
			continue
		}
		if err := r.tx.LinkBiblio(ctx, rep, *b); err != nil {
			return linked, missed, err
		}
		linked++
	}
	return linked, missed, nil
}

// Keep confirms the taxa created since the last Keep or Discard and
// returns how many there were.
func (r *Resolver) Keep() int {
	n := len(r.pending)
	for v, t := range r.pending {
		r.taxa[v] = t
	}
	clear(r.pending)
	r.created += n
	return n
}

// Discard forgets the taxa created since the last Keep or Discard.
func (r *Resolver) Discard() {
	clear(r.pending)
}

// Created returns the number of taxa kept so far.
func (r *Resolver) Created() int {
	return r.created
}
