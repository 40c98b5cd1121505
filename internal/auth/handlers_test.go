package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

func TestRequireAuthAndRole(t *testing.T) {
	svc, err := newTestService(newFakeQueries())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.WithNow(time.Now)
	customer, _, err := svc.signAccessToken(dbgen.User{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Roles: []string{"customer"}})
	if err != nil {
		t.Fatalf("sign customer token: %v", err)
	}
	admin, _, err := svc.signAccessToken(dbgen.User{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Roles: []string{RoleAdmin}})
	if err != nil {
		t.Fatalf("sign admin token: %v", err)
	}

	mw := Middleware{Service: svc}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserID(r.Context()); !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	protected := mw.RequireAuth(RequireRole(RoleAdmin)(final))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing token", header: "", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "customer", header: "Bearer " + customer, want: http.StatusForbidden},
		{name: "admin", header: "bearer " + admin, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/admin/orders/x/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthenticatePassesAnonymousRequests(t *testing.T) {
	svc, err := newTestService(newFakeQueries())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	called := false
	h := Middleware{Service: svc}.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := common.UserID(r.Context()); ok {
			t.Fatal("anonymous request should carry no user id")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dishes", nil))
	if !called {
		t.Fatal("expected next handler to run")
	}
}

func TestMeRequiresAuthentication(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
