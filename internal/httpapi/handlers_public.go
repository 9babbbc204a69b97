package httpapi

import (
	"net/http"

	svcerrors "github.com/lotta-llamas/api/internal/errors"
	"github.com/lotta-llamas/api/internal/httputil"
)

// handlePublicPosts is the unauthenticated feed of public posts.
func (a *API) handlePublicPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.store.ListPublicPosts(r.Context())
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}
