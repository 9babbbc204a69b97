// Package httpapi exposes the REST surface of the gateway.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lotta-llamas/api/internal/assets"
	"github.com/lotta-llamas/api/internal/logging"
	"github.com/lotta-llamas/api/internal/media"
	"github.com/lotta-llamas/api/internal/metrics"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage"
	"github.com/lotta-llamas/api/internal/token"
)

// API holds the collaborators every handler needs.
type API struct {
	store     storage.Store
	resolver  assets.Resolver
	issuer    *token.Issuer
	denylist  token.Denylist
	objects   media.ObjectStore
	log       *logging.Logger
	metrics   *metrics.Metrics
	tokenTTL  time.Duration
	maxUpload int64
}

// Options configures a new API.
type Options struct {
	Store     storage.Store
	Resolver  assets.Resolver
	Issuer    *token.Issuer
	Denylist  token.Denylist
	Objects   media.ObjectStore
	Log       *logging.Logger
	Metrics   *metrics.Metrics
	TokenTTL  time.Duration
	MaxUpload int64
}

// New creates the API from its collaborators.
func New(opts Options) *API {
	maxUpload := opts.MaxUpload
	if maxUpload == 0 {
		maxUpload = 15 << 20
	}
	return &API{
		store:     opts.Store,
		resolver:  opts.Resolver,
		issuer:    opts.Issuer,
		denylist:  opts.Denylist,
		objects:   opts.Objects,
		log:       opts.Log,
		metrics:   opts.Metrics,
		tokenTTL:  opts.TokenTTL,
		maxUpload: maxUpload,
	}
}

// Router builds the route table. The gate protects everything under
// /api/auth except the login endpoint itself; extra middleware applies
// to the whole router.
func (a *API) Router(gate *middleware.Gate, extra ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	for _, mw := range extra {
		r.Use(mw)
	}

	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/public", a.handlePublicPosts).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/validate-wallet", a.handleValidateWallet).Methods(http.MethodPost)

	s := r.PathPrefix("/api/auth").Subrouter()
	s.Use(gate.Handler)

	s.HandleFunc("/logout", a.handleLogout).Methods(http.MethodPost)

	s.HandleFunc("/wallets", a.handleListWallets).Methods(http.MethodGet)
	s.HandleFunc("/wallets/{walletId}", a.handleGetWallet).Methods(http.MethodGet)

	s.HandleFunc("/content", a.handleListContent).Methods(http.MethodGet)
	s.HandleFunc("/content", a.handleCreateContent).Methods(http.MethodPost)
	s.HandleFunc("/content/{contentId}", a.handleGetContent).Methods(http.MethodGet)
	s.HandleFunc("/content/{contentId}", a.handleUpdateContent).Methods(http.MethodPut)

	s.HandleFunc("/posts", a.handleListPosts).Methods(http.MethodGet)
	s.HandleFunc("/posts", a.handleCreatePost).Methods(http.MethodPost)
	s.HandleFunc("/posts/{postId}", a.handleGetPost).Methods(http.MethodGet)
	s.HandleFunc("/posts/{postId}", a.handleUpdatePost).Methods(http.MethodPut)
	s.HandleFunc("/posts/{postId}", a.handleDeletePost).Methods(http.MethodDelete)

	s.HandleFunc("/comments", a.handleListComments).Methods(http.MethodGet)
	s.HandleFunc("/comments", a.handleCreateComment).Methods(http.MethodPost)
	s.HandleFunc("/comments/{commentId}", a.handleDeleteComment).Methods(http.MethodDelete)

	s.HandleFunc("/media", a.handleUploadMedia).Methods(http.MethodPost)
	s.HandleFunc("/media", a.handleListMedia).Methods(http.MethodGet)
	s.HandleFunc("/media/{mediaId}", a.handleGetMedia).Methods(http.MethodGet)

	return r
}

func hasAsset(list []string, asset string) bool {
	for _, a := range list {
		if a == asset {
			return true
		}
	}
	return false
}
