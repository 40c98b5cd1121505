package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const rolesClaim = "roles"

// accessRules turns a signature-verified access token into Claims.
type accessRules struct {
	issuer    string
	audience  string
	skew      time.Duration
	algorithm jwa.SignatureAlgorithm
}

// claims checks the signing algorithm and registered claims at now, then requires a
// user id subject. Unknown role values are dropped rather than rejected.
func (r accessRules) claims(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) (Claims, error) {
	if tok == nil {
		return Claims{}, errors.New("auth: token is nil")
	}
	if algorithm == "" || (r.algorithm != "" && algorithm != r.algorithm) {
		return Claims{}, fmt.Errorf("auth: unexpected token algorithm %q", algorithm)
	}

	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithAcceptableSkew(r.skew),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	if r.audience != "" {
		opts = append(opts, jwt.WithAudience(r.audience))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return Claims{}, err
	}

	subject, err := uuid.Parse(tok.Subject())
	if err != nil {
		return Claims{}, fmt.Errorf("auth: subject is not a user id: %w", err)
	}
	return Claims{UserID: subject.String(), Roles: rolesFrom(tok)}, nil
}

func rolesFrom(tok jwt.Token) []string {
	raw, ok := tok.Get(rolesClaim)
	if !ok {
		return nil
	}
	var values []string
	switch v := raw.(type) {
	case []string:
		values = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	}
	roles := make([]string, 0, len(values))
	for _, role := range values {
		if role == RoleCustomer || role == RoleAdmin {
			roles = append(roles, role)
		}
	}
	return roles
}
