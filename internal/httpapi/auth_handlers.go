package httpapi

import (
	"errors"
	"net/http"
	"time"

	"clinidesk.app/internal/audit"
	"clinidesk.app/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code"`
	Method   string `json:"method"`
	SSOToken string `json:"sso_token"`
}

type sessionResponse struct {
	Employee     *auth.Employee `json:"employee"`
	Roles        []auth.Role    `json:"roles"`
	Session      *auth.Session  `json:"session"`
	SessionToken string         `json:"session_token,omitempty"`
}

type challengeResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required"`
	Method            string `json:"method"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.auth.Login(r.Context(), auth.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		OTPCode:   req.OTPCode,
		Method:    auth.TwoFactorMethod(req.Method),
		SSOToken:  req.SSOToken,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		handleLoginError(w, r, err)
		return
	}

	if result.RequiresTwoFactor {
		writeJSON(w, http.StatusOK, challengeResponse{
			TwoFactorRequired: true,
			Method:            string(result.Method),
		})
		return
	}

	a.setSessionCookie(w, result.Session)
	writeJSON(w, http.StatusOK, sessionResponse{
		Employee:     result.Employee,
		Roles:        result.Roles,
		Session:      result.Session,
		SessionToken: result.Session.Token,
	})
}

func handleLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrTwoFactorInvalid):
		writeError(w, r, http.StatusUnauthorized, auth.ErrTwoFactorInvalid.Error())
	case errors.Is(err, auth.ErrEmployeeInactive):
		writeError(w, r, http.StatusForbidden, auth.ErrEmployeeInactive.Error())
	case errors.Is(err, auth.ErrOTPNotConfigured):
		writeError(w, r, http.StatusBadRequest, auth.ErrOTPNotConfigured.Error())
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrSessionCreationFailed):
		writeError(w, r, http.StatusInternalServerError, auth.ErrSessionCreationFailed.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "login failed")
	}
}

func (a *API) setSessionCookie(w http.ResponseWriter, sess *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   a.env == "production",
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.env == "production",
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, _ := auth.TokenFromContext(r.Context())
	if err := a.auth.Logout(r.Context(), token); err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	a.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Employee: principal.Employee,
		Roles:    principal.Roles,
		Session:  principal.Session,
	})
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	perms := principal.Permissions.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"permissions": perms,
		"roles":       principal.Roles,
	})
}
