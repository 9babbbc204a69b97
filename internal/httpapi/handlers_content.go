package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lotta-llamas/api/internal/domain/content"
	svcerrors "github.com/lotta-llamas/api/internal/errors"
	"github.com/lotta-llamas/api/internal/httputil"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage"
)

type contentPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
	Token       string `json:"token"`
}

type contentRequest struct {
	Content contentPayload `json:"content"`
}

// handleListContent returns every content collection gated by an asset
// the caller holds.
func (a *API) handleListContent(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	list, err := a.store.ListContentByTokens(r.Context(), ac.Assets)
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	a.log.WithContext(r.Context()).Infof("address %s requesting all content", ac.Address)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"content": list})
}

func (a *API) handleGetContent(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())
	contentID := mux.Vars(r)["contentId"]

	if err := uuid.Validate(contentID); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Content ID malformed"))
		return
	}

	record, err := a.store.GetContent(r.Context(), contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Content not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	if !hasAsset(ac.Assets, record.Token) {
		httputil.WriteError(w, svcerrors.Unauthorized("Token not available in wallet"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"content": record})
}

// handleCreateContent binds a new content collection to one of the
// caller's assets. First claim wins; an asset gates at most one
// collection globally.
func (a *API) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	var req contentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Malformed request body"))
		return
	}
	payload := req.Content

	owned, err := a.store.ListContentByWallet(r.Context(), ac.Address)
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	claimed := make(map[string]bool, len(owned))
	for _, c := range owned {
		claimed[c.Token] = true
	}

	if !hasAsset(ac.Assets, payload.Token) || claimed[payload.Token] {
		httputil.WriteError(w, svcerrors.Unauthorized("Token not available in wallet"))
		return
	}

	if _, err := a.store.GetContentByToken(r.Context(), payload.Token); err == nil {
		httputil.WriteError(w, svcerrors.Conflict("Token must be unique"))
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	created, err := a.store.CreateContent(r.Context(), content.Content{
		WalletID:    ac.Address,
		Token:       payload.Token,
		Title:       payload.Title,
		Description: payload.Description,
		IsPublic:    payload.IsPublic,
	})
	if err != nil {
		// The unique index backstops the pre-check under concurrency.
		if errors.Is(err, storage.ErrDuplicateToken) {
			httputil.WriteError(w, svcerrors.Conflict("Token must be unique"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	a.log.WithContext(r.Context()).Infof("address %s creating content", ac.Address)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"content": created})
}

func (a *API) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())
	contentID := mux.Vars(r)["contentId"]

	if err := uuid.Validate(contentID); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Content ID malformed"))
		return
	}

	var req contentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Malformed request body"))
		return
	}
	if req.Content.Title == "" {
		httputil.WriteError(w, svcerrors.InvalidInput("Missing title"))
		return
	}

	updated, err := a.store.UpdateContent(r.Context(), content.Content{
		ID:          contentID,
		WalletID:    ac.Address,
		Title:       req.Content.Title,
		Description: req.Content.Description,
		IsPublic:    req.Content.IsPublic,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Content not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	a.log.WithContext(r.Context()).Infof("address %s updating content %s", ac.Address, contentID)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"content": updated})
}
