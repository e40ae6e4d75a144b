package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"restomap.org/internal/auth"
)

type resetRequestBody struct {
	Email string `json:"email"`
}

type resetConfirmBody struct {
	Token             string `json:"token"`
	NouveauMotDePasse string `json:"nouveauMotDePasse"`
}

func (a *API) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Adresse email requise")
		return
	}

	if err := a.reset.Request(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "Adresse email invalide")
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "Aucun compte associé à cet email")
		default:
			writeError(w, r, http.StatusInternalServerError, "Erreur lors de l'envoi de l'email de réinitialisation")
		}
		return
	}

	// The token itself is never echoed; it only travels by email.
	writeJSON(w, http.StatusOK, map[string]any{
		"succes":  true,
		"message": "Un email de réinitialisation a été envoyé",
	})
}

func (a *API) handleResetVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/api/reset-password/verify/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, r, http.StatusBadRequest, "Lien de réinitialisation invalide")
		return
	}

	email, err := a.reset.Verify(r.Context(), token)
	if err != nil {
		a.writeResetError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"succes": true,
		"valid":  true,
		"email":  email,
	})
}

func (a *API) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetConfirmBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Token et nouveau mot de passe requis")
		return
	}
	if req.Token == "" || req.NouveauMotDePasse == "" {
		writeError(w, r, http.StatusBadRequest, "Token et nouveau mot de passe requis")
		return
	}

	if err := a.reset.Confirm(r.Context(), req.Token, req.NouveauMotDePasse); err != nil {
		a.writeResetError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"succes":  true,
		"message": "Mot de passe réinitialisé avec succès",
	})
}

func (a *API) writeResetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, r, http.StatusBadRequest, "Lien de réinitialisation expiré")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, "Lien de réinitialisation invalide")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères", a.auth.MinPasswordLen()))
	default:
		writeError(w, r, http.StatusInternalServerError, "Erreur serveur")
	}
}
