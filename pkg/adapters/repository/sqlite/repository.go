package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

// SQLiteRepository stores links and clicks. Timestamps are kept as UTC unix
// nanoseconds so ordering is identical on both drivers.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	if driverName == "sqlite" {
		dbURL = withPragmas(dbURL)
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// withPragmas puts connection pragmas in the DSN; the driver applies them to
// every new connection in the pool.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		short_code TEXT NOT NULL,
		custom_alias TEXT,
		original_url TEXT NOT NULL,
		password_hash TEXT,
		expires_at INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	-- Every code a link answers to. The primary key makes short codes and
	-- aliases unique against each other, not just within their own column.
	CREATE TABLE IF NOT EXISTS link_codes (
		code TEXT PRIMARY KEY,
		link_id TEXT NOT NULL,
		FOREIGN KEY(link_id) REFERENCES links(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_link_codes_link_id ON link_codes(link_id);

	CREATE TABLE IF NOT EXISTS clicks (
		id TEXT PRIMARY KEY,
		link_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		ip TEXT,
		user_agent TEXT,
		referrer TEXT,
		device TEXT,
		browser TEXT,
		os TEXT,
		country TEXT,
		city TEXT,
		region TEXT,
		FOREIGN KEY(link_id) REFERENCES links(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_clicks_link_id_timestamp ON clicks(link_id, timestamp);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateLink(ctx context.Context, link *domain.Link) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO links (id, short_code, custom_alias, original_url, password_hash, expires_at, is_active, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		link.ID, link.ShortCode, nullString(link.CustomAlias), link.OriginalURL,
		nullString(link.PasswordHash), nullTime(link.ExpiresAt), link.IsActive, toNanos(link.CreatedAt),
	)
	if err != nil {
		return err
	}

	// Uniqueness lives in link_codes only, so a collision names the code that lost.
	for _, code := range link.Codes() {
		_, err := tx.ExecContext(ctx, `INSERT INTO link_codes (code, link_id) VALUES (?, ?)`, code, link.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.CodeConflictError{Code: code}
			}
			return err
		}
	}

	return tx.Commit()
}

const linkColumns = `l.id, l.short_code, l.custom_alias, l.original_url, l.password_hash, l.expires_at, l.is_active, l.created_at`

func (r *SQLiteRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + `
			  FROM link_codes c JOIN links l ON l.id = c.link_id
			  WHERE c.code = ? AND l.is_active = 1`
	return r.findOne(ctx, query, code)
}

func (r *SQLiteRepository) FindByCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + `
			  FROM link_codes c JOIN links l ON l.id = c.link_id
			  WHERE c.code = ?`
	return r.findOne(ctx, query, code)
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, args ...interface{}) (*domain.Link, error) {
	link, err := scanLink(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE links SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + `,
			  (SELECT COUNT(*) FROM clicks k WHERE k.link_id = l.id) AS click_count
			  FROM links l WHERE 1 = 1`
	where, args := listFilters(filters)
	query += where

	query += " ORDER BY l.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		var clicks int64
		l, err := scanLink(rows, &clicks)
		if err != nil {
			return nil, err
		}
		l.Clicks = clicks
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *SQLiteRepository) Count(ctx context.Context, filters map[string]interface{}) (int64, error) {
	where, args := listFilters(filters)

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links l WHERE 1 = 1`+where, args...).Scan(&count)
	return count, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func listFilters(filters map[string]interface{}) (string, []interface{}) {
	var (
		where string
		args  []interface{}
	)
	if search, ok := filters["search"].(string); ok && search != "" {
		where += ` AND (l.original_url LIKE ? ESCAPE '\' OR l.short_code LIKE ? ESCAPE '\' OR l.custom_alias LIKE ? ESCAPE '\')`
		like := "%" + likeEscaper.Replace(search) + "%"
		args = append(args, like, like, like)
	}
	if active, ok := filters["active"].(bool); ok {
		where += " AND l.is_active = ?"
		args = append(args, active)
	}
	return where, args
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links l ORDER BY l.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *SQLiteRepository) InsertClick(ctx context.Context, c *domain.Click) error {
	query := `INSERT INTO clicks (id, link_id, timestamp, ip, user_agent, referrer, device, browser, os, country, city, region)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.LinkID, toNanos(c.Timestamp),
		nullString(c.IP), nullString(c.UserAgent), nullString(c.Referrer),
		nullString(c.Device), nullString(c.Browser), nullString(c.OS),
		nullString(c.Country), nullString(c.City), nullString(c.Region),
	)
	return err
}

func (r *SQLiteRepository) ListClicks(ctx context.Context, linkID string) ([]domain.Click, error) {
	query := `SELECT id, link_id, timestamp, ip, user_agent, referrer, device, browser, os, country, city, region
			  FROM clicks WHERE link_id = ? ORDER BY timestamp DESC`
	rows, err := r.db.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []domain.Click
	for rows.Next() {
		var (
			c                         domain.Click
			ts                        int64
			ip, ua, ref               sql.NullString
			device, browser, os       sql.NullString
			country, city, regionName sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.LinkID, &ts, &ip, &ua, &ref, &device, &browser, &os, &country, &city, &regionName); err != nil {
			return nil, err
		}
		c.Timestamp = fromNanos(ts)
		c.IP, c.UserAgent, c.Referrer = stringPtr(ip), stringPtr(ua), stringPtr(ref)
		c.Device, c.Browser, c.OS = stringPtr(device), stringPtr(browser), stringPtr(os)
		c.Country, c.City, c.Region = stringPtr(country), stringPtr(city), stringPtr(regionName)
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(s scanner, extra ...interface{}) (*domain.Link, error) {
	var (
		l         domain.Link
		alias     sql.NullString
		password  sql.NullString
		expiresAt sql.NullInt64
		createdAt int64
	)
	dest := []interface{}{&l.ID, &l.ShortCode, &alias, &l.OriginalURL, &password, &expiresAt, &l.IsActive, &createdAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	l.CustomAlias = stringPtr(alias)
	l.PasswordHash = stringPtr(password)
	l.CreatedAt = fromNanos(createdAt)
	if expiresAt.Valid {
		t := fromNanos(expiresAt.Int64)
		l.ExpiresAt = &t
	}
	return &l, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed: unique")
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return toNanos(*t)
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// Ensure interface compliance
var _ ports.Repository = (*SQLiteRepository)(nil)
