package httpapi

import (
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

type registerRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		a.writeError(w, r, authcore.ErrInvalidRequest)
		return
	}

	account, tokens, err := a.engine.Register(r.Context(), authcore.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Account: toAccount(account), Tokens: toTokens(tokens)})
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		a.writeError(w, r, authcore.ErrInvalidRequest)
		return
	}

	tokens, err := a.engine.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokens(tokens))
}

func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		a.writeError(w, r, authcore.ErrInvalidRequest)
		return
	}

	tokens, err := a.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokens(tokens))
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		a.writeError(w, r, authcore.ErrInvalidRequest)
		return
	}

	if err := a.engine.Revoke(r.Context(), req.RefreshToken); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	if err := a.engine.RevokeAll(r.Context(), accountID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
