package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"clinidesk.app/internal/audit"
	"clinidesk.app/internal/auth"
)

type addWhitelistRequest struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}

func (a *API) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermIPWhitelist, auth.ActionRead) {
			return
		}
		entries, err := a.auth.ListWhitelist(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "whitelist unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})

	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermIPWhitelist, auth.ActionUpdate) {
			return
		}
		var req addWhitelistRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		entry, err := a.auth.AddWhitelistEntry(r.Context(), req.Pattern, req.Description)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidInput) {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, r, http.StatusInternalServerError, "whitelist update failed")
			return
		}
		_ = audit.LogEvent(r.Context(), "security.whitelist.add", map[string]any{
			"pattern": entry.Pattern,
		})
		writeJSON(w, http.StatusCreated, entry)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.ensurePermission(w, r, auth.PermIPWhitelist, auth.ActionUpdate) {
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/v1/admin/whitelist/")
	pattern, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(pattern) == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if err := a.auth.RemoveWhitelistEntry(r.Context(), pattern); err != nil {
		switch {
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "pattern not found")
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "whitelist update failed")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "security.whitelist.remove", map[string]any{
		"pattern": pattern,
	})
	w.WriteHeader(http.StatusNoContent)
}
