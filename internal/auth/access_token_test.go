package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

func TestServiceParseAccessTokenCarriesRoles(t *testing.T) {
	svc, err := newTestService(newFakeQueries())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	id := uuid.New()
	token, _, err := svc.signAccessToken(dbgen.User{
		ID:    pgtype.UUID{Bytes: id, Valid: true},
		Roles: []string{RoleCustomer, RoleAdmin},
	})
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	claims, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != id.String() {
		t.Fatalf("unexpected subject: %s", claims.UserID)
	}
	if len(claims.Roles) != 2 || claims.Roles[1] != RoleAdmin {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestServiceParseAccessTokenRejectsExpired(t *testing.T) {
	svc, err := newTestService(newFakeQueries())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	issued := time.Now().Add(-time.Hour)
	svc.WithNow(func() time.Time { return issued })
	token, _, err := svc.signAccessToken(dbgen.User{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}})
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}

	svc.WithNow(time.Now)
	if _, err := svc.ParseAccessToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestServiceParseAccessTokenRejectsAlgorithmMismatch(t *testing.T) {
	svc, err := newTestService(newFakeQueries())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	built, err := jwt.NewBuilder().
		Subject(uuid.NewString()).
		Issuer(svc.issuer).
		Audience([]string{svc.audience}).
		IssuedAt(fixed).
		NotBefore(fixed.Add(-svc.clockSkew)).
		Expiration(fixed.Add(svc.accessTTL)).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, svc.secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.ParseAccessToken(string(signed)); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}
