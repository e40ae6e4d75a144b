package httpapi

import (
	"net/http"
)

func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensureAdmin(w, r); !ok {
		return
	}

	stats, err := a.auth.Stats(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Erreur lors de la récupération des statistiques")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"succes": true,
		"data":   stats,
	})
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensureAdmin(w, r); !ok {
		return
	}

	page, err := parsePositiveInt(r.URL.Query().Get("page"), 1, 1, 1<<20)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Paramètre page invalide")
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 10, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Paramètre limit invalide")
		return
	}

	result, err := a.auth.ListUsers(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Erreur lors de la récupération des utilisateurs")
		return
	}

	users := make([]map[string]any, 0, len(result.Users))
	for _, u := range result.Users {
		users = append(users, userPayload(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"succes": true,
		"data": map[string]any{
			"utilisateurs": users,
			"pagination": map[string]any{
				"page":  result.Page,
				"limit": result.Limit,
				"total": result.Total,
				"pages": result.Pages,
			},
		},
	})
}
