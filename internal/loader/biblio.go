package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/reptiledb/internal/dump"
	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// LoadBibliography reads the bibliography dump at path and upserts every
// entry by its citation id. Existing links to reptiles are preserved, so the
// bibliography can be refreshed without reloading the reptiles.
func (l *Loader) LoadBibliography(ctx context.Context, path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return l.readFailure(ctx, dump.BiblioSchema, path, err)
	}
	return l.LoadBibliographyBytes(ctx, filepath.Base(path), raw)
}

// LoadBibliographyBytes loads an in-memory bibliography dump.
func (l *Loader) LoadBibliographyBytes(ctx context.Context, name string, raw []byte) (*Result, error) {
	return l.run(ctx, name, raw, biblioIngester{})
}

type biblioIngester struct{}

func (biblioIngester) schema() *dump.Schema { return dump.BiblioSchema }

func (biblioIngester) begin(context.Context, store.Tx, *Result) error { return nil }

func (biblioIngester) ingest(ctx context.Context, tx store.Tx, row dump.Row, _ *Result) error {
	b, err := reptile.BiblioFromRow(row)
	if err != nil {
		return err
	}
	return tx.UpsertBiblio(ctx, b)
}

func (biblioIngester) keep(*Result) {}

func (biblioIngester) discard() {}
