package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitesmith/sitesmith/internal/errors"
)

// Site is one stored site row. Pages and Styles hold the serialized payloads
// exactly as stored; document.ParsePages and document.ParseStyles decode them.
type Site struct {
	ID           string
	Owner        string
	Name         string
	Pages        string
	Styles       string
	Template     string
	PublishedURL *string
	PublishedAt  *int64
	CreatedAt    int64
	UpdatedAt    int64
}

// SiteUpdate is a partial update. Nil fields are left untouched.
type SiteUpdate struct {
	Name         *string
	Pages        *string
	Styles       *string
	PublishedURL *string
	PublishedAt  *int64
}

// Store is the site row store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewStore wraps an open database.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const siteColumns = `id, user_id, name, pages, styles, template, published_url, published_at, created_at, updated_at`

// Insert creates a site row owned by owner and returns it.
func (s *Store) Insert(ctx context.Context, owner, name, pages, template string) (*Site, error) {
	now := time.Now().Unix()
	site := &Site{
		ID:        uuid.New().String(),
		Owner:     owner,
		Name:      name,
		Pages:     pages,
		Template:  template,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := s.dialect.rebind(`
		INSERT INTO sites (id, user_id, name, pages, styles, template, published_url, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, ?, NULL, NULL, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		site.ID, site.Owner, site.Name, toNullString(pages), toNullString(template), site.CreatedAt, site.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	return site, nil
}

// GetByID retrieves a site by id.
func (s *Store) GetByID(ctx context.Context, id string) (*Site, error) {
	query := s.dialect.rebind(`SELECT ` + siteColumns + ` FROM sites WHERE id = ?`)

	site, err := scanSite(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("site", id)
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return site, nil
}

// UpdateByID applies a partial update. Returns NOT_FOUND if no row matched.
func (s *Store) UpdateByID(ctx context.Context, id string, upd SiteUpdate) error {
	sets := []string{}
	args := []any{}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Pages != nil {
		sets = append(sets, "pages = ?")
		args = append(args, *upd.Pages)
	}
	if upd.Styles != nil {
		sets = append(sets, "styles = ?")
		args = append(args, *upd.Styles)
	}
	if upd.PublishedURL != nil {
		sets = append(sets, "published_url = ?")
		args = append(args, *upd.PublishedURL)
	}
	if upd.PublishedAt != nil {
		sets = append(sets, "published_at = ?")
		args = append(args, *upd.PublishedAt)
	}

	// Always bump updated_at
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().Unix())
	args = append(args, id)

	query := s.dialect.rebind(fmt.Sprintf(`UPDATE sites SET %s WHERE id = ?`, strings.Join(sets, ", ")))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return errors.NewNotFound("site", id)
	}
	return nil
}

// DeleteByID removes a site row. Returns NOT_FOUND if no row matched.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM sites WHERE id = ?`), id)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return errors.NewNotFound("site", id)
	}
	return nil
}

// ListByOwner returns owner's sites, most recently updated first.
// An empty owner lists every site.
func (s *Store) ListByOwner(ctx context.Context, owner string) ([]Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites`
	var args []any
	if owner != "" {
		query += ` WHERE user_id = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		sites = append(sites, *site)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return sites, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (*Site, error) {
	var (
		site         Site
		pages        sql.NullString
		styles       sql.NullString
		template     sql.NullString
		publishedURL sql.NullString
		publishedAt  sql.NullInt64
	)
	err := row.Scan(
		&site.ID, &site.Owner, &site.Name, &pages, &styles, &template,
		&publishedURL, &publishedAt, &site.CreatedAt, &site.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	site.Pages = pages.String
	site.Styles = styles.String
	site.Template = template.String
	if publishedURL.Valid {
		site.PublishedURL = &publishedURL.String
	}
	if publishedAt.Valid {
		site.PublishedAt = &publishedAt.Int64
	}
	return &site, nil
}

// wrapErr keeps context errors visible to the caller's timeout mapping and
// wraps everything else as INTERNAL.
func wrapErr(err error) error {
	if err == context.DeadlineExceeded || err == context.Canceled {
		return err
	}
	return errors.NewInternal(err)
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
