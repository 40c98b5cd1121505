package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-resto/internal/common"
)

const (
	defaultCSRFHeader = "X-CSRF-Token"
	defaultCSRFCookie = "csrf_token"
)

// CSRF protects cookie-authenticated endpoints (token refresh and logout) using the
// double-submit technique: the client echoes a readable cookie in a request header.
type CSRF struct {
	Header   string
	Cookie   string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Issue sets a fresh token cookie. It is readable by scripts so the SPA can copy it
// into the header.
func (c CSRF) Issue(w http.ResponseWriter) error {
	token, err := common.RandomToken(32)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName(),
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
	return nil
}

// Middleware enforces that unsafe requests carry a header matching the token cookie.
// Bearer-authenticated calls are exempt since browsers never attach them implicitly.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName := c.headerName()
	cookieName := c.cookieName()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		if token == "" {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "missing csrf token", nil)
			return
		}
		cookie, err := r.Cookie(cookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "missing csrf cookie", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "invalid csrf token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c CSRF) headerName() string {
	if h := strings.TrimSpace(c.Header); h != "" {
		return h
	}
	return defaultCSRFHeader
}

func (c CSRF) cookieName() string {
	if n := strings.TrimSpace(c.Cookie); n != "" {
		return n
	}
	return defaultCSRFCookie
}
