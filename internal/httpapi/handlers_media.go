package httpapi

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lotta-llamas/api/internal/domain/media"
	svcerrors "github.com/lotta-llamas/api/internal/errors"
	"github.com/lotta-llamas/api/internal/httputil"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage"
)

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func mediaKey(id string) string { return "images/" + id }

// handleUploadMedia accepts a multipart image upload, records a media
// row and stores the bytes in the object bucket under the row's id.
func (a *API) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		httputil.WriteError(w, &svcerrors.ServiceError{
			Code:       svcerrors.CodeInvalidInput,
			Message:    "No images larger than 15MB, please",
			HTTPStatus: http.StatusRequestEntityTooLarge,
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, svcerrors.MissingParams("Missing file"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		httputil.WriteError(w, svcerrors.InvalidInput("Only jpg, jpeg, png, gif and webp files are allowed"))
		return
	}
	if header.Size > a.maxUpload {
		httputil.WriteError(w, &svcerrors.ServiceError{
			Code:       svcerrors.CodeInvalidInput,
			Message:    "No images larger than 15MB, please",
			HTTPStatus: http.StatusRequestEntityTooLarge,
		})
		return
	}

	record, err := a.store.CreateMedia(r.Context(), media.Media{
		WalletID: ac.Address,
		Usage:    "post",
		IsPublic: true,
	})
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	if err := a.objects.Put(r.Context(), mediaKey(record.ID), file, contentType); err != nil {
		httputil.WriteError(w, svcerrors.Internal("Could not store media", err))
		return
	}

	a.log.WithContext(r.Context()).Infof("address %s uploaded media %s", ac.Address, record.ID)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"media": record})
}

func (a *API) handleListMedia(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	list, err := a.store.ListMediaByWallet(r.Context(), ac.Address)
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"media": list})
}

// handleGetMedia streams the stored object back to the client.
func (a *API) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := mux.Vars(r)["mediaId"]

	if err := uuid.Validate(mediaID); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Media ID malformed"))
		return
	}

	if _, err := a.store.GetMedia(r.Context(), mediaID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Media not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	body, contentType, err := a.objects.Get(r.Context(), mediaKey(mediaID))
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("Could not read media", err))
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		a.log.WithContext(r.Context()).WithError(err).Error("media stream interrupted")
	}
}
