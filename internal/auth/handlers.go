package auth

import (
	"context"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/obs"
)

// CartClearer drops a user's cart session on logout.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Handler exposes HTTP handlers for authentication endpoints.
type Handler struct {
	Service           *Service
	Validate          *validator.Validate
	Carts             CartClearer
	RefreshCookieName string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
	// IssueCSRF, when set, pairs every refresh cookie with a double-submit token.
	IssueCSRF func(http.ResponseWriter) error
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.Service.Signup(r.Context(), SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	}, r.UserAgent(), common.ClientIP(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, r, result)
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.Service.Login(r.Context(), req.Email, req.Password, r.UserAgent(), common.ClientIP(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, r, result)
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	result, err := h.Service.Refresh(r.Context(), h.refreshTokenFromRequest(r), r.UserAgent(), common.ClientIP(r))
	if err != nil {
		h.clearRefreshCookie(w)
		common.WriteError(w, err)
		return
	}
	h.setRefreshCookie(w, r, result)
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Logout handles POST /api/auth/logout. It always clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	userID, err := h.Service.Logout(r.Context(), h.refreshTokenFromRequest(r))
	if err != nil {
		obs.Logger(r.Context()).Warn().Err(err).Msg("logout_revoke_failed")
	}
	if userID == "" {
		userID, _ = common.UserID(r.Context())
	}
	if userID != "" && h.Carts != nil {
		if err := h.Carts.Clear(r.Context(), userID); err != nil {
			obs.Logger(r.Context()).Warn().Err(err).Str("user_id", userID).Msg("logout_cart_clear_failed")
		}
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	user, err := h.Service.Me(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := common.DecodeJSON(r, dst); err != nil {
		common.WriteError(w, err)
		return false
	}
	v := h.Validate
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	if err := v.Struct(dst); err != nil {
		common.WriteAppError(w, common.FromValidator(err))
		return false
	}
	return true
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, r *http.Request, result LoginResult) {
	if h.RefreshCookieName == "" || result.RefreshToken == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    result.RefreshToken,
		Domain:   h.CookieDomain,
		Path:     "/api/auth",
		Expires:  result.RefreshExpiry,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
	if h.IssueCSRF != nil {
		if err := h.IssueCSRF(w); err != nil {
			obs.Logger(r.Context()).Warn().Err(err).Msg("csrf_issue_failed")
		}
	}
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	if h.RefreshCookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    "",
		Domain:   h.CookieDomain,
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
}

func (h *Handler) refreshTokenFromRequest(r *http.Request) string {
	if h.RefreshCookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(h.RefreshCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
