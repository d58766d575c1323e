package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/storage"
	"github.com/IlianBuh/Wall/internal/storage/events"
	"github.com/IlianBuh/Wall/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

// timeLayout matches strftime('%Y-%m-%dT%H:%M:%fZ') defaults of the schema
const timeLayout = "2006-01-02T15:04:05.000Z"

type Storage struct {
	db *sql.DB
}

// New opens database file by path and applies the schema.
// ":memory:" gives private in-memory database
func New(path string) (*Storage, error) {
	const op = "sqlite.New"

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fail(op, err)
	}
	// single connection serializes writers and keeps in-memory database alive
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fail(op, err)
	}

	s := &Storage{db: db}
	if err = s.migrate(); err != nil {
		_ = db.Close()
		return nil, fail(op, err)
	}

	return s, nil
}

func (s *Storage) migrate() error {
	const op = "sqlite.migrate"

	src, err := iofs.New(migrations.FS, migrations.SQLiteDir)
	if err != nil {
		return fail(op, err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fail(op, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fail(op, err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fail(op, err)
	}

	return nil
}

// ListPosts returns all posts, newest first
func (s *Storage) ListPosts(ctx context.Context) ([]models.Post, error) {
	const (
		op          = "sqlite.ListPosts"
		selectPosts = `
			SELECT id, message, image_url, created_at
			FROM posts
			ORDER BY created_at DESC, id DESC`
	)

	rows, err := s.db.QueryContext(ctx, selectPosts)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fail(op, err)
		}
		posts = append(posts, post)
	}
	if err = rows.Err(); err != nil {
		return nil, fail(op, err)
	}

	return posts, nil
}

// SavePost inserts new post and its outbox event in one transaction
func (s *Storage) SavePost(
	ctx context.Context,
	message string,
	imageURL *string,
) (models.Post, error) {
	const (
		op         = "sqlite.SavePost"
		insertPost = `
			INSERT INTO posts(message, image_url)
			VALUES(?, ?)
			RETURNING id, message, image_url, created_at`
		insertEvent = `
			INSERT INTO events(event_type, payload)
			VALUES(?, ?)`
	)

	if err := ctx.Err(); err != nil {
		return models.Post{}, fail(op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Post{}, fail(op, err)
	}
	defer tx.Rollback()

	post, err := scanPost(tx.QueryRowContext(ctx, insertPost, message, toNull(imageURL)))
	if err != nil {
		return models.Post{}, fail(op, err)
	}

	payload, err := events.CollectEventPayload(post)
	if err != nil {
		return models.Post{}, fail(op, err)
	}

	if _, err = tx.ExecContext(ctx, insertEvent, models.EventPostCreated, payload); err != nil {
		return models.Post{}, fail(op, err)
	}

	if err = tx.Commit(); err != nil {
		return models.Post{}, fail(op, err)
	}

	return post, nil
}

// EventPage returns up to limit unreserved events in commit order
func (s *Storage) EventPage(ctx context.Context, limit int) ([]models.Event, error) {
	const (
		op          = "sqlite.EventPage"
		selectEvent = `
			SELECT event_id, event_type, payload, created_at
			FROM events
			WHERE reserved = 0
			ORDER BY event_id
			LIMIT ?`
	)

	rows, err := s.db.QueryContext(ctx, selectEvent, limit)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()

	page := make([]models.Event, 0, limit)
	for rows.Next() {
		var (
			e         models.Event
			createdAt string
		)
		if err = rows.Scan(&e.Id, &e.Type, &e.Payload, &createdAt); err != nil {
			return nil, fail(op, err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fail(op, err)
		}
		page = append(page, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fail(op, err)
	}

	return page, nil
}

// Reserve marks events as taken by the relay.
// Returns [storage.ErrNoEvents] if nothing was reserved
func (s *Storage) Reserve(ctx context.Context, ids []int64) error {
	const op = "sqlite.Reserve"

	if len(ids) == 0 {
		return fail(op, storage.ErrNoEvents)
	}

	query := `UPDATE events SET reserved = 1 WHERE reserved = 0 AND event_id IN (` + placeholders(len(ids)) + `)`
	res, err := s.db.ExecContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return fail(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fail(op, err)
	}
	if n == 0 {
		return fail(op, storage.ErrNoEvents)
	}

	return nil
}

// Release returns reserved events back to the queue
func (s *Storage) Release(ctx context.Context, ids []int64) error {
	const op = "sqlite.Release"

	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE events SET reserved = 0 WHERE event_id IN (` + placeholders(len(ids)) + `)`
	if _, err := s.db.ExecContext(ctx, query, toArgs(ids)...); err != nil {
		return fail(op, err)
	}

	return nil
}

// DeleteEvents removes relayed events
func (s *Storage) DeleteEvents(ctx context.Context, ids []int64) error {
	const op = "sqlite.DeleteEvents"

	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM events WHERE event_id IN (` + placeholders(len(ids)) + `)`
	if _, err := s.db.ExecContext(ctx, query, toArgs(ids)...); err != nil {
		return fail(op, err)
	}

	return nil
}

// Stop closes the database
func (s *Storage) Stop() error {
	const op = "sqlite.Stop"

	if err := s.db.Close(); err != nil {
		return fail(op, fmt.Errorf("%w: %w", storage.ErrClose, err))
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (models.Post, error) {
	var (
		post      models.Post
		imageURL  sql.NullString
		createdAt string
		err       error
	)

	if err = row.Scan(&post.Id, &post.Message, &imageURL, &createdAt); err != nil {
		return models.Post{}, err
	}
	if imageURL.Valid {
		post.ImageURL = &imageURL.String
	}
	if post.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Post{}, err
	}

	return post, nil
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Parse(time.RFC3339Nano, value)
	}

	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return args
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
