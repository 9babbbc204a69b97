// Package memory provides a mutex-guarded in-memory Store used by unit
// tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lotta-llamas/api/internal/domain/comment"
	"github.com/lotta-llamas/api/internal/domain/content"
	"github.com/lotta-llamas/api/internal/domain/media"
	"github.com/lotta-llamas/api/internal/domain/post"
	"github.com/lotta-llamas/api/internal/domain/wallet"
	"github.com/lotta-llamas/api/internal/storage"
)

// Store keeps every record in maps keyed by ID. A monotonic sequence
// preserves insertion order for listings.
type Store struct {
	mu       sync.RWMutex
	seq      int
	wallets  map[string]wallet.Wallet
	contents map[string]content.Content
	posts    map[string]post.Post
	comments map[string]comment.Comment
	media    map[string]media.Media
	order    map[string]int
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		wallets:  make(map[string]wallet.Wallet),
		contents: make(map[string]content.Content),
		posts:    make(map[string]post.Post),
		comments: make(map[string]comment.Comment),
		media:    make(map[string]media.Media),
		order:    make(map[string]int),
	}
}

func (s *Store) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

func (s *Store) sortByInsertion(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] < s.order[ids[j]] })
}

// --- WalletStore ------------------------------------------------------------

func (s *Store) UpsertWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.wallets[w.Address]; ok {
		if w.Name != "" {
			existing.Name = w.Name
			s.wallets[w.Address] = existing
		}
		return s.wallets[w.Address], nil
	}

	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	s.wallets[w.Address] = w
	s.track(w.Address)
	return w, nil
}

func (s *Store) GetWallet(_ context.Context, address string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[address]
	if !ok {
		return wallet.Wallet{}, storage.ErrNotFound
	}
	return w, nil
}

func (s *Store) ListWallets(_ context.Context) ([]wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.wallets))
	for addr := range s.wallets {
		ids = append(ids, addr)
	}
	s.sortByInsertion(ids)

	result := make([]wallet.Wallet, 0, len(ids))
	for _, addr := range ids {
		result = append(result, s.wallets[addr])
	}
	return result, nil
}

// --- ContentStore -----------------------------------------------------------

func (s *Store) CreateContent(_ context.Context, c content.Content) (content.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.contents {
		if existing.Token == c.Token {
			return content.Content{}, storage.ErrDuplicateToken
		}
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	s.contents[c.ID] = c
	s.track(c.ID)
	return c, nil
}

func (s *Store) GetContent(_ context.Context, id string) (content.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contents[id]
	if !ok {
		return content.Content{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetContentByToken(_ context.Context, token string) (content.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.contents {
		if c.Token == token {
			return c, nil
		}
	}
	return content.Content{}, storage.ErrNotFound
}

func (s *Store) ListContentByTokens(_ context.Context, tokens []string) ([]content.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	held := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		held[t] = true
	}

	var ids []string
	for id, c := range s.contents {
		if held[c.Token] {
			ids = append(ids, id)
		}
	}
	s.sortByInsertion(ids)

	result := make([]content.Content, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.contents[id])
	}
	return result, nil
}

func (s *Store) ListContentByWallet(_ context.Context, walletID string) ([]content.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, c := range s.contents {
		if c.WalletID == walletID {
			ids = append(ids, id)
		}
	}
	s.sortByInsertion(ids)

	result := make([]content.Content, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.contents[id])
	}
	return result, nil
}

func (s *Store) UpdateContent(_ context.Context, c content.Content) (content.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contents[c.ID]
	if !ok || existing.WalletID != c.WalletID {
		return content.Content{}, storage.ErrNotFound
	}

	existing.Title = c.Title
	existing.Description = c.Description
	existing.IsPublic = c.IsPublic
	existing.UpdatedAt = time.Now().UTC()
	s.contents[c.ID] = existing
	return existing, nil
}

// --- PostStore --------------------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.posts[p.ID] = p
	s.track(p.ID)
	return p, nil
}

func (s *Store) GetPost(_ context.Context, id string) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok || p.IsDeleted {
		return post.Post{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPostsByContent(_ context.Context, contentID string) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, p := range s.posts {
		if p.ContentID == contentID && !p.IsDeleted {
			ids = append(ids, id)
		}
	}
	s.sortByInsertion(ids)

	result := make([]post.Post, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.posts[id])
	}
	return result, nil
}

func (s *Store) ListPublicPosts(_ context.Context) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, p := range s.posts {
		if p.IsPublic && !p.IsDeleted {
			ids = append(ids, id)
		}
	}
	s.sortByInsertion(ids)

	result := make([]post.Post, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.posts[id])
	}
	return result, nil
}

func (s *Store) UpdatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[p.ID]
	if !ok || existing.IsDeleted || existing.WalletID != p.WalletID {
		return post.Post{}, storage.ErrNotFound
	}

	existing.Title = p.Title
	existing.Text = p.Text
	existing.UpdatedAt = time.Now().UTC()
	s.posts[p.ID] = existing
	return existing, nil
}

func (s *Store) SoftDeletePost(_ context.Context, id, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[id]
	if !ok || existing.IsDeleted || existing.WalletID != walletID {
		return storage.ErrNotFound
	}
	existing.IsDeleted = true
	existing.UpdatedAt = time.Now().UTC()
	s.posts[id] = existing
	return nil
}

// --- CommentStore -----------------------------------------------------------

func (s *Store) CreateComment(_ context.Context, c comment.Comment) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	s.comments[c.ID] = c
	s.track(c.ID)
	return c, nil
}

func (s *Store) ListCommentsByPost(_ context.Context, postID string) ([]comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, c := range s.comments {
		if c.PostID == postID && !c.IsDeleted {
			ids = append(ids, id)
		}
	}
	s.sortByInsertion(ids)

	result := make([]comment.Comment, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.comments[id])
	}
	return result, nil
}

func (s *Store) SoftDeleteComment(_ context.Context, id, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.comments[id]
	if !ok || existing.IsDeleted || existing.WalletID != walletID {
		return storage.ErrNotFound
	}
	existing.IsDeleted = true
	s.comments[id] = existing
	return nil
}

// --- MediaStore -------------------------------------------------------------

func (s *Store) CreateMedia(_ context.Context, m media.Media) (media.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	s.media[m.ID] = m
	s.track(m.ID)
	return m, nil
}

func (s *Store) GetMedia(_ context.Context, id string) (media.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.media[id]
	if !ok || m.IsDeleted {
		return media.Media{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMediaByWallet(_ context.Context, walletID string) ([]media.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, m := range s.media {
		if m.WalletID == walletID && !m.IsDeleted {
			ids = append(ids, id)
		}
	}
	s.sortByInsertion(ids)

	result := make([]media.Media, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.media[id])
	}
	return result, nil
}
