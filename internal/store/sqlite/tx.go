package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// Tx is a SQLite unit of work.
type Tx struct {
	tx   *sql.Tx
	done bool
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.done = true
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return classify("savepoint", err)
}

func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return classify("rollback to savepoint", err)
}

func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return classify("release savepoint", err)
}

func (t *Tx) ClearReptiles(ctx context.Context) (int64, error) {
	res, err := t.tx.ExecContext(ctx, stmts.ClearReptiles)
	if err != nil {
		return 0, classify("clear reptiles", err)
	}
	return res.RowsAffected()
}

func (t *Tx) FindTaxa(ctx context.Context, value string) (reptile.Taxa, error) {
	var tx reptile.Taxa
	err := t.tx.QueryRowContext(ctx, stmts.FindTaxa, value).Scan(&tx.ID, &tx.Value)
	if err != nil {
		return reptile.Taxa{}, classify("find taxa", err)
	}
	return tx, nil
}

func (t *Tx) CreateTaxa(ctx context.Context, value string) (reptile.Taxa, error) {
	tx := reptile.Taxa{Value: value}
	if err := t.tx.QueryRowContext(ctx, stmts.CreateTaxa, value).Scan(&tx.ID); err != nil {
		return reptile.Taxa{}, classify("create taxa", err)
	}
	return tx, nil
}

func (t *Tx) FindBiblio(ctx context.Context, id string) (reptile.Biblio, error) {
	var b reptile.Biblio
	err := t.tx.QueryRowContext(ctx, stmts.FindBiblio, id).
		Scan(&b.ID, &b.Authors, &b.Year, &b.Title, &b.Journal, &b.URL)
	if err != nil {
		return reptile.Biblio{}, classify("find biblio", err)
	}
	return b, nil
}

func (t *Tx) UpsertBiblio(ctx context.Context, b reptile.Biblio) error {
	_, err := t.tx.ExecContext(ctx, stmts.UpsertBiblio, b.ID, b.Authors, b.Year, b.Title, b.Journal, b.URL)
	return classify("upsert biblio", err)
}

func (t *Tx) InsertReptile(ctx context.Context, r *reptile.Reptile) error {
	if err := t.tx.QueryRowContext(ctx, stmts.InsertReptile, store.ReptileArgs(r)...).Scan(&r.ID); err != nil {
		return classify("insert reptile", err)
	}

	for _, kind := range reptile.ChildKinds {
		if err := t.insertChildren(ctx, r.ID, kind, r.Children[kind]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) insertChildren(ctx context.Context, reptileID int64, kind reptile.ChildKind, children []reptile.Child) error {
	for i := range children {
		c := &children[i]
		c.ReptileID = reptileID
		res, err := t.tx.ExecContext(ctx, stmts.InsertChild[kind], reptileID, c.Position, c.Value)
		if err != nil {
			return classify("insert "+kind.Table(), err)
		}
		if id, err := res.LastInsertId(); err == nil {
			c.ID = id
		}
	}
	return nil
}

func (t *Tx) UpdateReptile(ctx context.Context, r *reptile.Reptile) error {
	args := append(store.ReptileArgs(r), r.ID)
	res, err := t.tx.ExecContext(ctx, stmts.UpdateReptile, args...)
	if err != nil {
		return classify("update reptile", err)
	}
	return requireRow(res)
}

func (t *Tx) ReplaceChildren(ctx context.Context, reptileID int64, kind reptile.ChildKind, children []reptile.Child) error {
	if _, err := t.tx.ExecContext(ctx, stmts.DeleteChildren[kind], reptileID); err != nil {
		return classify("delete "+kind.Table(), err)
	}
	return t.insertChildren(ctx, reptileID, kind, children)
}

func (t *Tx) LinkBiblio(ctx context.Context, r *reptile.Reptile, b reptile.Biblio) error {
	if _, err := t.tx.ExecContext(ctx, stmts.LinkBiblio, r.ID, b.ID); err != nil {
		return classify("link biblio", err)
	}
	r.Link(b)
	return nil
}

func (t *Tx) DeleteReptile(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, stmts.DeleteReptile, id)
	if err != nil {
		return classify("delete reptile", err)
	}
	return requireRow(res)
}

func (t *Tx) GetReptile(ctx context.Context, id int64) (*reptile.Reptile, error) {
	var (
		r         reptile.Reptile
		taxaID    sql.NullInt64
		taxaValue sql.NullString
	)
	err := t.tx.QueryRowContext(ctx, stmts.GetReptile, id).Scan(
		&r.ID, &r.Subspecies1, &r.Subspecies2, &r.Finder, &r.Year,
		&r.Note, &r.Extra, &r.Code16, &r.Code17, &r.Reproduction,
		&taxaID, &taxaValue,
	)
	if err != nil {
		return nil, classify("get reptile", err)
	}
	if taxaID.Valid {
		r.Taxa = &reptile.Taxa{ID: taxaID.Int64, Value: taxaValue.String}
		r.TaxaValue = taxaValue.String
	}

	r.Children = make(map[reptile.ChildKind][]reptile.Child, len(reptile.ChildKinds))
	for _, kind := range reptile.ChildKinds {
		children, err := t.children(ctx, r.ID, kind)
		if err != nil {
			return nil, err
		}
		r.Children[kind] = children
	}

	rows, err := t.tx.QueryContext(ctx, stmts.LinkedBiblio, r.ID)
	if err != nil {
		return nil, classify("linked biblio", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b reptile.Biblio
		if err := rows.Scan(&b.ID, &b.Authors, &b.Year, &b.Title, &b.Journal, &b.URL); err != nil {
			return nil, classify("scan biblio", err)
		}
		r.Bibliography = append(r.Bibliography, b)
		r.BiblioIDs = append(r.BiblioIDs, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("linked biblio", err)
	}

	return &r, nil
}

func (t *Tx) children(ctx context.Context, reptileID int64, kind reptile.ChildKind) ([]reptile.Child, error) {
	rows, err := t.tx.QueryContext(ctx, stmts.SelectChildren[kind], reptileID)
	if err != nil {
		return nil, classify("select "+kind.Table(), err)
	}
	defer rows.Close()

	var out []reptile.Child
	for rows.Next() {
		c := reptile.Child{ReptileID: reptileID, Kind: kind}
		if err := rows.Scan(&c.ID, &c.Position, &c.Value); err != nil {
			return nil, classify("scan "+kind.Table(), err)
		}
		out = append(out, c)
	}
	return out, classify("select "+kind.Table(), rows.Err())
}

func (t *Tx) SearchReptiles(ctx context.Context, q store.Query) ([]int64, error) {
	query, args := stmts.Search(q)
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("search reptiles", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify("scan reptile id", err)
		}
		ids = append(ids, id)
	}
	return ids, classify("search reptiles", rows.Err())
}

func (t *Tx) FindAdmin(ctx context.Context, username string) (reptile.AdminUser, error) {
	var u reptile.AdminUser
	err := t.tx.QueryRowContext(ctx, stmts.FindAdmin, username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return reptile.AdminUser{}, classify("find admin", err)
	}
	return u, nil
}

func (t *Tx) CreateAdmin(ctx context.Context, u *reptile.AdminUser) error {
	err := t.tx.QueryRowContext(ctx, stmts.CreateAdmin, u.Username, u.PasswordHash).Scan(&u.ID)
	return classify("create admin", err)
}

func (t *Tx) Stats(ctx context.Context) (store.Stats, error) {
	var s store.Stats
	err := t.tx.QueryRowContext(ctx, stmts.Stats).Scan(&s.Reptiles, &s.Taxa, &s.Biblio, &s.BiblioLinks, &s.Admins)
	if err != nil {
		return store.Stats{}, classify("stats", err)
	}
	return s, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
