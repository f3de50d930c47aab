// Package catalog is the read and write surface over a loaded store: it
// returns reptile read models, searches them, applies single-row creates and
// edits, and authenticates the admin account.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/reptiledb/internal/dump"
	"github.com/JonMunkholm/reptiledb/internal/loader"
	"github.com/JonMunkholm/reptiledb/internal/logging"
	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// Service serves reads and edits against a store.
type Service struct {
	store store.Store
}

// New returns a catalog over s.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Get returns the read model of one reptile.
func (s *Service) Get(ctx context.Context, id int64) (*ReptileView, error) {
	var view ReptileView
	err := s.read(ctx, func(tx store.Tx) error {
		r, err := tx.GetReptile(ctx, id)
		if err != nil {
			return err
		}
		view = NewView(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Search returns the reptiles matching every predicate of q, in id order.
func (s *Service) Search(ctx context.Context, q store.Query) ([]ReptileView, error) {
	var views []ReptileView
	err := s.read(ctx, func(tx store.Tx) error {
		ids, err := tx.SearchReptiles(ctx, q)
		if err != nil {
			return err
		}
		views = make([]ReptileView, 0, len(ids))
		for _, id := range ids {
			r, err := tx.GetReptile(ctx, id)
			if err != nil {
				return fmt.Errorf("load reptile %d: %w", id, err)
			}
			views = append(views, NewView(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// Create builds one reptile from a dump row and stores it. Existing reptiles
// are kept. Bibliography ids without an entry are skipped.
func (s *Service) Create(ctx context.Context, columns []string) (*ReptileView, error) {
	row, err := dump.ReptileSchema.Row(dump.Record{Line: 1, Columns: columns})
	if err != nil {
		return nil, classify(err)
	}
	rep, err := reptile.FromRow(row)
	if err != nil {
		return nil, classify(err)
	}

	log := logging.FromContext(ctx)
	err = s.write(ctx, func(tx store.Tx) error {
		resolver, err := loader.NewResolver(tx, 0, log)
		if err != nil {
			return err
		}
		if err := resolver.Resolve(ctx, rep); err != nil {
			return err
		}
		if err := tx.InsertReptile(ctx, rep); err != nil {
			return err
		}
		_, missed, err := resolver.LinkBibliography(ctx, rep)
		if err != nil {
			return err
		}
		if missed > 0 {
			log.Info("reptile created with unknown bibliography ids", "id", rep.ID, "missed", missed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("reptile created", "id", rep.ID, "subspecies_1", rep.Subspecies1, "subspecies_2", rep.Subspecies2)
	view := NewView(rep)
	return &view, nil
}

// UpdateRequest lists the changes to apply to one reptile. Nil fields are
// left untouched. Each named child collection replaces the stored one.
type UpdateRequest struct {
	Subspecies1  *string `json:"subspecies_1"`
	Subspecies2  *string `json:"subspecies_2"`
	Finder       *string `json:"subspecies_finder"`
	Year         *int    `json:"subspecies_year"`
	Note         *string `json:"note"`
	Extra        *string `json:"extra"`
	Code16       *string `json:"code_16"`
	Code17       *string `json:"code_17"`
	Reproduction *string `json:"reproduction"`

	// Taxa re-resolves the higher taxon; an empty value removes it.
	Taxa *string `json:"higher_taxa"`

	Children map[reptile.ChildKind][]string `json:"children"`
}

// Validate rejects unknown child collections.
func (u UpdateRequest) Validate() error {
	for kind := range u.Children {
		if !kind.Valid() {
			return &InvalidError{Err: fmt.Errorf("unknown child collection %q", kind)}
		}
	}
	return nil
}

// apply copies the scalar changes onto r, clamped to the column lengths.
func (u UpdateRequest) apply(r *reptile.Reptile) {
	set := func(dst *string, src *string, col string) {
		if src != nil {
			*dst = clamp(*src, col)
		}
	}
	set(&r.Subspecies1, u.Subspecies1, dump.ColSubspecies1)
	set(&r.Subspecies2, u.Subspecies2, dump.ColSubspecies2)
	set(&r.Finder, u.Finder, dump.ColFinder)
	set(&r.Code16, u.Code16, dump.ColCode16)
	set(&r.Code17, u.Code17, dump.ColCode17)
	set(&r.Reproduction, u.Reproduction, dump.ColReproduction)
	if u.Year != nil {
		r.Year = *u.Year
	}
	if u.Note != nil {
		r.Note = reptile.EncodeOpaque(clamp(*u.Note, dump.ColNote))
	}
	if u.Extra != nil {
		r.Extra = reptile.EncodeOpaque(clamp(*u.Extra, dump.ColExtra))
	}
}

func clamp(v, col string) string {
	return reptile.Clamp(v, dump.ReptileSchema.Field(col).MaxLen)
}

// Update applies req to the reptile with the given id and returns the
// updated read model.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*ReptileView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var view ReptileView
	err := s.write(ctx, func(tx store.Tx) error {
		r, err := tx.GetReptile(ctx, id)
		if err != nil {
			return err
		}

		req.apply(r)
		if req.Taxa != nil {
			resolver, err := loader.NewResolver(tx, 0, logging.FromContext(ctx))
			if err != nil {
				return err
			}
			r.TaxaValue = clamp(*req.Taxa, dump.ColHigherTaxa)
			if err := resolver.Resolve(ctx, r); err != nil {
				return err
			}
		}
		if err := tx.UpdateReptile(ctx, r); err != nil {
			return err
		}

		for _, kind := range reptile.ChildKinds {
			values, ok := req.Children[kind]
			if !ok {
				continue
			}
			r.SetValues(kind, values)
			if err := tx.ReplaceChildren(ctx, r.ID, kind, r.Children[kind]); err != nil {
				return fmt.Errorf("replace %s: %w", kind, err)
			}
		}

		fresh, err := tx.GetReptile(ctx, id)
		if err != nil {
			return err
		}
		view = NewView(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("reptile updated", "id", id)
	return &view, nil
}

// Delete removes a reptile with its children and bibliography links.
// Taxa and bibliography entries are kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.write(ctx, func(tx store.Tx) error {
		return tx.DeleteReptile(ctx, id)
	})
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("reptile deleted", "id", id)
	return nil
}

// Authenticate checks credentials against the admin account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (reptile.AdminUser, error) {
	if username == "" || password == "" {
		return reptile.AdminUser{}, ErrUnauthorized
	}

	var user reptile.AdminUser
	err := s.read(ctx, func(tx store.Tx) error {
		u, err := tx.FindAdmin(ctx, username)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return reptile.AdminUser{}, ErrUnauthorized
	}
	if err != nil {
		return reptile.AdminUser{}, err
	}

	if !user.CheckPassword(password) {
		return reptile.AdminUser{}, ErrUnauthorized
	}
	return user, nil
}

// read runs fn in a unit of work that is always rolled back.
func (s *Service) read(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	return fn(tx)
}

// write runs fn in a unit of work committed on success. Constraint and row
// errors are returned as *ConflictError and *InvalidError.
func (s *Service) write(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		logging.FromContext(ctx).Debug("catalog write rolled back", "error", err)
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}
