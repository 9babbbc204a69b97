// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lotta-llamas/api/internal/domain/comment"
	"github.com/lotta-llamas/api/internal/domain/content"
	"github.com/lotta-llamas/api/internal/domain/media"
	"github.com/lotta-llamas/api/internal/domain/post"
	"github.com/lotta-llamas/api/internal/domain/wallet"
	"github.com/lotta-llamas/api/internal/storage"
)

const uniqueViolation = "23505"

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Connect opens a pool against dsn and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return storage.ErrDuplicateToken
	}
	return err
}

// --- WalletStore ------------------------------------------------------------

func (s *Store) UpsertWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO wallets (address, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE wallets.name END
		RETURNING address, name, created_at
	`, w.Address, w.Name, w.CreatedAt)

	var out wallet.Wallet
	if err := row.StructScan(&out); err != nil {
		return wallet.Wallet{}, translate(err)
	}
	return out, nil
}

func (s *Store) GetWallet(ctx context.Context, address string) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := s.db.GetContext(ctx, &w, `
		SELECT address, name, created_at FROM wallets WHERE address = $1
	`, address)
	if err != nil {
		return wallet.Wallet{}, translate(err)
	}
	return w, nil
}

func (s *Store) ListWallets(ctx context.Context) ([]wallet.Wallet, error) {
	var result []wallet.Wallet
	err := s.db.SelectContext(ctx, &result, `
		SELECT address, name, created_at FROM wallets ORDER BY created_at
	`)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// --- ContentStore -----------------------------------------------------------

func (s *Store) CreateContent(ctx context.Context, c content.Content) (content.Content, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contents (id, wallet_id, token, title, description, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.WalletID, c.Token, c.Title, c.Description, c.IsPublic, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return content.Content{}, translate(err)
	}
	return c, nil
}

func (s *Store) GetContent(ctx context.Context, id string) (content.Content, error) {
	var c content.Content
	err := s.db.GetContext(ctx, &c, `
		SELECT id, wallet_id, token, title, description, is_public, created_at, updated_at
		FROM contents WHERE id = $1
	`, id)
	if err != nil {
		return content.Content{}, translate(err)
	}
	return c, nil
}

func (s *Store) GetContentByToken(ctx context.Context, token string) (content.Content, error) {
	var c content.Content
	err := s.db.GetContext(ctx, &c, `
		SELECT id, wallet_id, token, title, description, is_public, created_at, updated_at
		FROM contents WHERE token = $1
	`, token)
	if err != nil {
		return content.Content{}, translate(err)
	}
	return c, nil
}

func (s *Store) ListContentByTokens(ctx context.Context, tokens []string) ([]content.Content, error) {
	if len(tokens) == 0 {
		return []content.Content{}, nil
	}
	var result []content.Content
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, wallet_id, token, title, description, is_public, created_at, updated_at
		FROM contents WHERE token = ANY($1) ORDER BY created_at
	`, pq.Array(tokens))
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (s *Store) ListContentByWallet(ctx context.Context, walletID string) ([]content.Content, error) {
	var result []content.Content
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, wallet_id, token, title, description, is_public, created_at, updated_at
		FROM contents WHERE wallet_id = $1 ORDER BY created_at
	`, walletID)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (s *Store) UpdateContent(ctx context.Context, c content.Content) (content.Content, error) {
	row := s.db.QueryRowxContext(ctx, `
		UPDATE contents
		SET title = $3, description = $4, is_public = $5, updated_at = $6
		WHERE id = $1 AND wallet_id = $2
		RETURNING id, wallet_id, token, title, description, is_public, created_at, updated_at
	`, c.ID, c.WalletID, c.Title, c.Description, c.IsPublic, time.Now().UTC())

	var out content.Content
	if err := row.StructScan(&out); err != nil {
		return content.Content{}, translate(err)
	}
	return out, nil
}

// --- PostStore --------------------------------------------------------------

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, content_id, wallet_id, title, text, is_public, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)
	`, p.ID, p.ContentID, p.WalletID, p.Title, p.Text, p.IsPublic, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return post.Post{}, translate(err)
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (post.Post, error) {
	var p post.Post
	err := s.db.GetContext(ctx, &p, `
		SELECT id, content_id, wallet_id, title, text, is_public, is_deleted, created_at, updated_at
		FROM posts WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return post.Post{}, translate(err)
	}
	return p, nil
}

func (s *Store) ListPostsByContent(ctx context.Context, contentID string) ([]post.Post, error) {
	var result []post.Post
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, content_id, wallet_id, title, text, is_public, is_deleted, created_at, updated_at
		FROM posts WHERE content_id = $1 AND NOT is_deleted ORDER BY created_at
	`, contentID)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (s *Store) ListPublicPosts(ctx context.Context) ([]post.Post, error) {
	var result []post.Post
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, content_id, wallet_id, title, text, is_public, is_deleted, created_at, updated_at
		FROM posts WHERE is_public AND NOT is_deleted ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (s *Store) UpdatePost(ctx context.Context, p post.Post) (post.Post, error) {
	row := s.db.QueryRowxContext(ctx, `
		UPDATE posts
		SET title = $3, text = $4, updated_at = $5
		WHERE id = $1 AND wallet_id = $2 AND NOT is_deleted
		RETURNING id, content_id, wallet_id, title, text, is_public, is_deleted, created_at, updated_at
	`, p.ID, p.WalletID, p.Title, p.Text, time.Now().UTC())

	var out post.Post
	if err := row.StructScan(&out); err != nil {
		return post.Post{}, translate(err)
	}
	return out, nil
}

func (s *Store) SoftDeletePost(ctx context.Context, id, walletID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET is_deleted = true, updated_at = $3
		WHERE id = $1 AND wallet_id = $2 AND NOT is_deleted
	`, id, walletID, time.Now().UTC())
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- CommentStore -----------------------------------------------------------

func (s *Store) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, wallet_id, text, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
	`, c.ID, c.PostID, c.WalletID, c.Text, c.CreatedAt)
	if err != nil {
		return comment.Comment{}, translate(err)
	}
	return c, nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID string) ([]comment.Comment, error) {
	var result []comment.Comment
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, post_id, wallet_id, text, is_deleted, created_at
		FROM comments WHERE post_id = $1 AND NOT is_deleted ORDER BY created_at
	`, postID)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (s *Store) SoftDeleteComment(ctx context.Context, id, walletID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE comments SET is_deleted = true
		WHERE id = $1 AND wallet_id = $2 AND NOT is_deleted
	`, id, walletID)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- MediaStore -------------------------------------------------------------

func (s *Store) CreateMedia(ctx context.Context, m media.Media) (media.Media, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (id, wallet_id, usage, is_public, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
	`, m.ID, m.WalletID, m.Usage, m.IsPublic, m.CreatedAt)
	if err != nil {
		return media.Media{}, translate(err)
	}
	return m, nil
}

func (s *Store) GetMedia(ctx context.Context, id string) (media.Media, error) {
	var m media.Media
	err := s.db.GetContext(ctx, &m, `
		SELECT id, wallet_id, usage, is_public, is_deleted, created_at
		FROM media WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return media.Media{}, translate(err)
	}
	return m, nil
}

func (s *Store) ListMediaByWallet(ctx context.Context, walletID string) ([]media.Media, error) {
	var result []media.Media
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, wallet_id, usage, is_public, is_deleted, created_at
		FROM media WHERE wallet_id = $1 AND NOT is_deleted ORDER BY created_at
	`, walletID)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}
