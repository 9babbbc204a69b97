// Package storage defines the persistence interfaces consumed by the HTTP
// handlers. Implementations: memory (tests, local dev) and postgres.
package storage

import (
	"context"
	"errors"

	"github.com/lotta-llamas/api/internal/domain/comment"
	"github.com/lotta-llamas/api/internal/domain/content"
	"github.com/lotta-llamas/api/internal/domain/media"
	"github.com/lotta-llamas/api/internal/domain/post"
	"github.com/lotta-llamas/api/internal/domain/wallet"
)

var (
	// ErrNotFound reports an absent record. Soft-deleted rows are treated
	// as absent by read paths.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateToken reports a violation of the one-collection-per-asset
	// uniqueness constraint.
	ErrDuplicateToken = errors.New("token must be unique")
)

// WalletStore persists wallets that have authenticated at least once.
type WalletStore interface {
	UpsertWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	GetWallet(ctx context.Context, address string) (wallet.Wallet, error)
	ListWallets(ctx context.Context) ([]wallet.Wallet, error)
}

// ContentStore persists asset-gated content collections.
type ContentStore interface {
	// CreateContent fails with ErrDuplicateToken when the gating asset is
	// already claimed by any content record.
	CreateContent(ctx context.Context, c content.Content) (content.Content, error)
	GetContent(ctx context.Context, id string) (content.Content, error)
	GetContentByToken(ctx context.Context, token string) (content.Content, error)
	ListContentByTokens(ctx context.Context, tokens []string) ([]content.Content, error)
	ListContentByWallet(ctx context.Context, walletID string) ([]content.Content, error)
	// UpdateContent writes title/description/visibility for the record owned
	// by c.WalletID.
	UpdateContent(ctx context.Context, c content.Content) (content.Content, error)
}

// PostStore persists posts. Deletes are soft: rows are flagged, not removed.
type PostStore interface {
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	GetPost(ctx context.Context, id string) (post.Post, error)
	ListPostsByContent(ctx context.Context, contentID string) ([]post.Post, error)
	ListPublicPosts(ctx context.Context) ([]post.Post, error)
	UpdatePost(ctx context.Context, p post.Post) (post.Post, error)
	SoftDeletePost(ctx context.Context, id, walletID string) error
}

// CommentStore persists comments. Deletes are soft.
type CommentStore interface {
	CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error)
	ListCommentsByPost(ctx context.Context, postID string) ([]comment.Comment, error)
	SoftDeleteComment(ctx context.Context, id, walletID string) error
}

// MediaStore persists media records; bytes live in object storage.
type MediaStore interface {
	CreateMedia(ctx context.Context, m media.Media) (media.Media, error)
	GetMedia(ctx context.Context, id string) (media.Media, error)
	ListMediaByWallet(ctx context.Context, walletID string) ([]media.Media, error)
}

// Store aggregates every persistence concern of the gateway.
type Store interface {
	WalletStore
	ContentStore
	PostStore
	CommentStore
	MediaStore
}
