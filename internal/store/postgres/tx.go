package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// Tx is a PostgreSQL unit of work.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, fmt.Sprintf("SAVEPOINT %s", name))
	return classify("savepoint", err)
}

func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name))
	return classify("rollback to savepoint", err)
}

func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", name))
	return classify("release savepoint", err)
}

func (t *Tx) ClearReptiles(ctx context.Context) (int64, error) {
	tag, err := t.tx.Exec(ctx, stmts.ClearReptiles)
	if err != nil {
		return 0, classify("clear reptiles", err)
	}
	return tag.RowsAffected(), nil
}

func (t *Tx) FindTaxa(ctx context.Context, value string) (reptile.Taxa, error) {
	var tx reptile.Taxa
	if err := t.tx.QueryRow(ctx, stmts.FindTaxa, value).Scan(&tx.ID, &tx.Value); err != nil {
		return reptile.Taxa{}, classify("find taxa", err)
	}
	return tx, nil
}

func (t *Tx) CreateTaxa(ctx context.Context, value string) (reptile.Taxa, error) {
	tx := reptile.Taxa{Value: value}
	if err := t.tx.QueryRow(ctx, stmts.CreateTaxa, value).Scan(&tx.ID); err != nil {
		return reptile.Taxa{}, classify("create taxa", err)
	}
	return tx, nil
}

func (t *Tx) FindBiblio(ctx context.Context, id string) (reptile.Biblio, error) {
	var b reptile.Biblio
	err := t.tx.QueryRow(ctx, stmts.FindBiblio, id).
		Scan(&b.ID, &b.Authors, &b.Year, &b.Title, &b.Journal, &b.URL)
	if err != nil {
		return reptile.Biblio{}, classify("find biblio", err)
	}
	return b, nil
}

func (t *Tx) UpsertBiblio(ctx context.Context, b reptile.Biblio) error {
	_, err := t.tx.Exec(ctx, stmts.UpsertBiblio, b.ID, b.Authors, b.Year, b.Title, b.Journal, b.URL)
	return classify("upsert biblio", err)
}

func (t *Tx) InsertReptile(ctx context.Context, r *reptile.Reptile) error {
	if err := t.tx.QueryRow(ctx, stmts.InsertReptile, store.ReptileArgs(r)...).Scan(&r.ID); err != nil {
		return classify("insert reptile", err)
	}

	for _, kind := range reptile.ChildKinds {
		if err := t.copyChildren(ctx, r.ID, kind, r.Children[kind]); err != nil {
			return err
		}
	}
	return nil
}

// copyChildren bulk-inserts one collection with the COPY protocol. Child ids
// are not returned by COPY and stay zero until the aggregate is reloaded.
func (t *Tx) copyChildren(ctx context.Context, reptileID int64, kind reptile.ChildKind, children []reptile.Child) error {
	if len(children) == 0 {
		return nil
	}

	rows := make([][]any, len(children))
	for i := range children {
		children[i].ReptileID = reptileID
		rows[i] = []any{reptileID, int32(children[i].Position), children[i].Value}
	}

	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{kind.Table()},
		[]string{"reptile_id", "position", "value"},
		pgx.CopyFromRows(rows),
	)
	return classify("copy "+kind.Table(), err)
}

func (t *Tx) UpdateReptile(ctx context.Context, r *reptile.Reptile) error {
	args := append(store.ReptileArgs(r), r.ID)
	tag, err := t.tx.Exec(ctx, stmts.UpdateReptile, args...)
	if err != nil {
		return classify("update reptile", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *Tx) ReplaceChildren(ctx context.Context, reptileID int64, kind reptile.ChildKind, children []reptile.Child) error {
	if _, err := t.tx.Exec(ctx, stmts.DeleteChildren[kind], reptileID); err != nil {
		return classify("delete "+kind.Table(), err)
	}
	return t.copyChildren(ctx, reptileID, kind, children)
}

func (t *Tx) LinkBiblio(ctx context.Context, r *reptile.Reptile, b reptile.Biblio) error {
	if _, err := t.tx.Exec(ctx, stmts.LinkBiblio, r.ID, b.ID); err != nil {
		return classify("link biblio", err)
	}
	r.Link(b)
	return nil
}

func (t *Tx) DeleteReptile(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, stmts.DeleteReptile, id)
	if err != nil {
		return classify("delete reptile", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *Tx) GetReptile(ctx context.Context, id int64) (*reptile.Reptile, error) {
	var (
		r         reptile.Reptile
		taxaID    *int64
		taxaValue *string
	)
	err := t.tx.QueryRow(ctx, stmts.GetReptile, id).Scan(
		&r.ID, &r.Subspecies1, &r.Subspecies2, &r.Finder, &r.Year,
		&r.Note, &r.Extra, &r.Code16, &r.Code17, &r.Reproduction,
		&taxaID, &taxaValue,
	)
	if err != nil {
		return nil, classify("get reptile", err)
	}
	if taxaID != nil && taxaValue != nil {
		r.Taxa = &reptile.Taxa{ID: *taxaID, Value: *taxaValue}
		r.TaxaValue = *taxaValue
	}

	r.Children = make(map[reptile.ChildKind][]reptile.Child, len(reptile.ChildKinds))
	for _, kind := range reptile.ChildKinds {
		children, err := t.children(ctx, r.ID, kind)
		if err != nil {
			return nil, err
		}
		r.Children[kind] = children
	}

	rows, err := t.tx.Query(ctx, stmts.LinkedBiblio, r.ID)
	if err != nil {
		return nil, classify("linked biblio", err)
	}
	linked, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reptile.Biblio, error) {
		var b reptile.Biblio
		err := row.Scan(&b.ID, &b.Authors, &b.Year, &b.Title, &b.Journal, &b.URL)
		return b, err
	})
	if err != nil {
		return nil, classify("linked biblio", err)
	}
	for _, b := range linked {
		r.Bibliography = append(r.Bibliography, b)
		r.BiblioIDs = append(r.BiblioIDs, b.ID)
	}

	return &r, nil
}

func (t *Tx) children(ctx context.Context, reptileID int64, kind reptile.ChildKind) ([]reptile.Child, error) {
	rows, err := t.tx.Query(ctx, stmts.SelectChildren[kind], reptileID)
	if err != nil {
		return nil, classify("select "+kind.Table(), err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reptile.Child, error) {
		c := reptile.Child{ReptileID: reptileID, Kind: kind}
		err := row.Scan(&c.ID, &c.Position, &c.Value)
		return c, err
	})
	if err != nil {
		return nil, classify("select "+kind.Table(), err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (t *Tx) SearchReptiles(ctx context.Context, q store.Query) ([]int64, error) {
	query, args := stmts.Search(q)
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("search reptiles", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, classify("search reptiles", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func (t *Tx) FindAdmin(ctx context.Context, username string) (reptile.AdminUser, error) {
	var u reptile.AdminUser
	err := t.tx.QueryRow(ctx, stmts.FindAdmin, username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return reptile.AdminUser{}, classify("find admin", err)
	}
	return u, nil
}

func (t *Tx) CreateAdmin(ctx context.Context, u *reptile.AdminUser) error {
	err := t.tx.QueryRow(ctx, stmts.CreateAdmin, u.Username, u.PasswordHash).Scan(&u.ID)
	return classify("create admin", err)
}

func (t *Tx) Stats(ctx context.Context) (store.Stats, error) {
	var s store.Stats
	err := t.tx.QueryRow(ctx, stmts.Stats).Scan(&s.Reptiles, &s.Taxa, &s.Biblio, &s.BiblioLinks, &s.Admins)
	if err != nil {
		return store.Stats{}, classify("stats", err)
	}
	return s, nil
}
