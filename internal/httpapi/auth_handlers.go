package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"restomap.org/internal/auth"
)

type credentialsRequest struct {
	Email      string `json:"email"`
	MotDePasse string `json:"motDePasse"`
}

// userPayload is the utilisateur object returned by every auth endpoint.
// The password hash never serializes (json:"-" on the model); nom is derived
// from the email's local part.
func userPayload(u auth.User) map[string]any {
	payload := map[string]any{
		"id":              u.ID,
		"email":           u.Email,
		"nom":             u.DisplayName(),
		"role":            u.Role,
		"statut":          u.Status,
		"dateInscription": u.RegisteredAt,
	}
	if u.LastLoginAt != nil {
		payload["derniereConnexion"] = *u.LastLoginAt
	}
	return payload
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Email et mot de passe requis")
		return
	}
	if req.Email == "" || req.MotDePasse == "" {
		writeError(w, r, http.StatusBadRequest, "Email et mot de passe requis")
		return
	}

	user, token, err := a.auth.Register(r.Context(), req.Email, req.MotDePasse)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrConflict):
			writeError(w, r, http.StatusBadRequest, "Un compte existe déjà avec cet email")
		case errors.Is(err, auth.ErrInvalidInput):
			if !auth.ValidEmail(auth.NormalizeEmail(req.Email)) {
				writeError(w, r, http.StatusBadRequest, "Adresse email invalide")
				return
			}
			writeError(w, r, http.StatusBadRequest,
				fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères", a.auth.MinPasswordLen()))
		default:
			writeError(w, r, http.StatusInternalServerError, "Erreur lors de la création du compte")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"succes":      true,
		"message":     "Compte créé avec succès",
		"token":       token,
		"utilisateur": userPayload(*user),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Email et mot de passe requis")
		return
	}
	if req.Email == "" || req.MotDePasse == "" {
		writeError(w, r, http.StatusBadRequest, "Email et mot de passe requis")
		return
	}

	user, token, err := a.auth.Login(r.Context(), req.Email, req.MotDePasse)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "Email ou mot de passe incorrect")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Erreur lors de la connexion")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"succes":      true,
		"message":     "Connexion réussie",
		"token":       token,
		"utilisateur": userPayload(*user),
	})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Token d'authentification manquant")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"succes":      true,
		"utilisateur": userPayload(user),
	})
}
