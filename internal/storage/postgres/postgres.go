package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/storage"
	"github.com/IlianBuh/Wall/internal/storage/events"
	"github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

func New(
	user string,
	password string,
	host string,
	port int,
	dbname string,
	timeout int,
) (*Storage, error) {
	const op = "postgres.New"
	conn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=%d&sslmode=disable",
		user, password, host, port, dbname, timeout,
	)

	s, err := Open(conn)
	if err != nil {
		return nil, fail(op, err)
	}

	return s, nil
}

// Open connects to the database by connection string and checks the connection
func Open(conn string) (*Storage, error) {
	const op = "postgres.Open"

	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fail(op, err)
	}

	err = db.Ping()
	if err != nil {
		_ = db.Close()
		return nil, fail(op, err)
	}

	return &Storage{db: db}, nil
}

// ListPosts returns all posts, newest first
func (s *Storage) ListPosts(ctx context.Context) ([]models.Post, error) {
	const (
		op          = "postgres.ListPosts"
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

// SavePost inserts new post and its outbox event in one transaction.
// Id and creation time are assigned by the database
func (s *Storage) SavePost(
	ctx context.Context,
	message string,
	imageURL *string,
) (models.Post, error) {
	const (
		op         = "postgres.SavePost"
		insertPost = `
			INSERT INTO posts(message, image_url)
			VALUES($1, $2)
			RETURNING id, message, image_url, created_at`
		insertEvent = `
			INSERT INTO events(event_type, payload)
			VALUES($1, $2)`
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
		op          = "postgres.EventPage"
		selectEvent = `
			SELECT event_id, event_type, payload, created_at
			FROM events
			WHERE NOT reserved
			ORDER BY event_id
			LIMIT $1`
	)

	rows, err := s.db.QueryContext(ctx, selectEvent, limit)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()

	page := make([]models.Event, 0, limit)
	for rows.Next() {
		var e models.Event
		if err = rows.Scan(&e.Id, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
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
	const (
		op      = "postgres.Reserve"
		reserve = `
			UPDATE events SET reserved = TRUE
			WHERE event_id = ANY($1) AND NOT reserved`
	)

	if len(ids) == 0 {
		return fail(op, storage.ErrNoEvents)
	}

	res, err := s.db.ExecContext(ctx, reserve, pq.Array(ids))
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
	const (
		op      = "postgres.Release"
		release = `
			UPDATE events SET reserved = FALSE
			WHERE event_id = ANY($1)`
	)

	if _, err := s.db.ExecContext(ctx, release, pq.Array(ids)); err != nil {
		return fail(op, err)
	}

	return nil
}

// DeleteEvents removes relayed events
func (s *Storage) DeleteEvents(ctx context.Context, ids []int64) error {
	const (
		op          = "postgres.DeleteEvents"
		deleteEvent = `
			DELETE FROM events
			WHERE event_id = ANY($1)`
	)

	if _, err := s.db.ExecContext(ctx, deleteEvent, pq.Array(ids)); err != nil {
		return fail(op, err)
	}

	return nil
}

// DB exposes connection pool for migrations
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Stop closes the connection pool
func (s *Storage) Stop() error {
	const op = "postgres.Stop"

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
		post     models.Post
		imageURL sql.NullString
	)

	if err := row.Scan(&post.Id, &post.Message, &imageURL, &post.CreatedAt); err != nil {
		return models.Post{}, err
	}
	if imageURL.Valid {
		post.ImageURL = &imageURL.String
	}

	return post, nil
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

// fail assembles a new error with define structure
// Error message has pattern 'op':'err'
func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
