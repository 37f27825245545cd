package httpapi

import (
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

type profileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	Bio         *string `json:"bio"`
}

type submitCodeRequest struct {
	Code string `json:"code"`
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	account, err := a.engine.Account(r.Context(), accountID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(account))
}

func (a *api) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.DisplayName == nil && req.AvatarURL == nil && req.Bio == nil {
		a.writeError(w, r, authcore.ErrInvalidRequest)
		return
	}

	accountID, _ := middleware.AccountIDFromContext(r.Context())
	account, err := a.engine.UpdateProfile(r.Context(), accountID, authcore.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(account))
}

func (a *api) handleVerifyRequest(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	if err := a.engine.RequestCode(r.Context(), accountID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) handleVerifySubmit(w http.ResponseWriter, r *http.Request) {
	var req submitCodeRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Code == "" {
		a.writeError(w, r, authcore.ErrInvalidRequest)
		return
	}

	accountID, _ := middleware.AccountIDFromContext(r.Context())
	if err := a.engine.SubmitCode(r.Context(), accountID, req.Code); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
