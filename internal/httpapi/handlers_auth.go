package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lotta-llamas/api/internal/domain/wallet"
	svcerrors "github.com/lotta-llamas/api/internal/errors"
	"github.com/lotta-llamas/api/internal/httputil"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage"
	walletsig "github.com/lotta-llamas/api/internal/wallet"
)

// ===== Login =====

type validateWalletRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

type validateWalletResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

// handleValidateWallet proves wallet ownership and mints a capability
// token scoped to the assets the wallet holds right now.
func (a *API) handleValidateWallet(w http.ResponseWriter, r *http.Request) {
	var req validateWalletRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		a.recordLogin("failure")
		httputil.WriteError(w, svcerrors.MissingParams("Missing params"))
		return
	}
	if req.Address == "" || req.Signature == "" || req.Message == "" {
		a.recordLogin("failure")
		httputil.WriteError(w, svcerrors.MissingParams("Missing params"))
		return
	}

	if !walletsig.IsValidAddress(req.Address) {
		a.recordLogin("failure")
		httputil.WriteError(w, svcerrors.Unauthorized("Invalid address"))
		return
	}

	verified, err := walletsig.VerifyMessage(req.Address, req.Message, req.Signature)
	if err != nil {
		// Malformed input is not the same as a signature that does
		// not match; clients rely on the distinction.
		a.recordLogin("failure")
		a.log.WithContext(r.Context()).WithError(err).Error("signature verification errored")
		httputil.WriteError(w, svcerrors.Internal("Signature verification failed", err))
		return
	}
	if !verified {
		a.recordLogin("failure")
		httputil.WriteError(w, svcerrors.VerificationFailed("Invalid Message"))
		return
	}

	held, err := a.resolver.Resolve(r.Context(), req.Address)
	if err != nil {
		a.recordLogin("failure")
		a.log.WithContext(r.Context()).WithError(err).Error("asset resolution failed")
		httputil.WriteError(w, svcerrors.Upstream("Could not resolve wallet assets", err))
		return
	}

	signed, err := a.issuer.Issue(req.Address, held)
	if err != nil {
		a.recordLogin("failure")
		httputil.WriteError(w, svcerrors.Internal("Could not issue token", err))
		return
	}

	if _, err := a.store.UpsertWallet(r.Context(), wallet.Wallet{Address: req.Address}); err != nil {
		a.recordLogin("failure")
		httputil.WriteError(w, svcerrors.Internal("Could not persist wallet", err))
		return
	}

	a.recordLogin("success")
	a.log.WithContext(r.Context()).WithFields(map[string]interface{}{
		"address": req.Address,
		"assets":  len(held),
	}).Info("wallet authenticated")

	httputil.WriteJSON(w, http.StatusOK, validateWalletResponse{Token: signed, Address: req.Address})
}

func (a *API) recordLogin(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordLogin(outcome)
	}
}

// ===== Logout =====

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, svcerrors.Unauthorized(""))
		return
	}

	if a.denylist != nil {
		if err := a.denylist.Revoke(r.Context(), ac.TokenID, a.tokenTTL); err != nil {
			httputil.WriteError(w, svcerrors.Internal("Could not revoke token", err))
			return
		}
	}

	a.log.WithContext(r.Context()).WithFields(map[string]interface{}{
		"address": ac.Address,
	}).Info("wallet logged out")
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"data": "Logged out"})
}

// ===== Wallets =====

func (a *API) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := a.store.ListWallets(r.Context())
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"wallets": wallets})
}

func (a *API) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	walletID := mux.Vars(r)["walletId"]

	found, err := a.store.GetWallet(r.Context(), walletID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Wallet not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"wallet": found})
}

// ===== Health =====

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
