package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/db"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/rewards"
)

const (
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 7 * 24 * time.Hour
	defaultWelcomeBonus = 150
	refreshTokenBytes   = 48
)

// Roles carried in the access token.
const (
	RoleCustomer = "customer"
	// RoleAdmin grants access to the admin order endpoints.
	RoleAdmin = "admin"
)

// Service coordinates signup, credential checks and refresh sessions.
type Service struct {
	queries      dbgen.Querier
	tx           db.TxRunner
	bus          *events.Bus
	secret       []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	welcomeBonus int
	now          func() time.Time
	signer       jwa.SignatureAlgorithm
	rules        accessRules
	issuer       string
	audience     string
	clockSkew    time.Duration
}

// Config configures the auth service.
type Config struct {
	Queries         dbgen.Querier
	Tx              db.TxRunner
	Bus             *events.Bus
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        string
	ClockSkew       time.Duration
	WelcomeBonus    int
}

// User is the account payload returned to clients.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	RewardPoints int       `json:"rewardPoints"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SignupInput carries the fields accepted by Signup.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// LoginResult bundles the token material issued by Signup, Login and Refresh.
type LoginResult struct {
	User          User      `json:"user"`
	AccessToken   string    `json:"accessToken"`
	RefreshToken  string    `json:"-"`
	AccessExpiry  time.Time `json:"accessTokenExpiresAt"`
	RefreshExpiry time.Time `json:"-"`
}

// Claims is the authenticated identity carried by an access token.
type Claims struct {
	UserID string
	Roles  []string
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	tx := cfg.Tx
	if tx == nil {
		tx = db.Direct{Q: cfg.Queries}
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	bonus := cfg.WelcomeBonus
	if bonus <= 0 {
		bonus = defaultWelcomeBonus
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-resto"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "resto-web"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		queries:      cfg.Queries,
		tx:           tx,
		bus:          cfg.Bus,
		secret:       []byte(secret),
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		welcomeBonus: bonus,
		now:          time.Now,
		signer:       jwa.HS256,
		rules: accessRules{
			issuer:    issuer,
			audience:  audience,
			skew:      clockSkew,
			algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Signup creates the account, credits the welcome bonus and records user.signed_up in one
// transaction, then opens a refresh session.
func (s *Service) Signup(ctx context.Context, in SignupInput, userAgent, ip string) (LoginResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return LoginResult{}, common.ErrValidation("name", "name is required")
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		return LoginResult{}, common.ErrValidation("email", "email is required")
	}
	if len(in.Password) < 8 {
		return LoginResult{}, common.ErrValidation("password", "password must be at least 8 characters")
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return LoginResult{}, fmt.Errorf("hash password: %w", err)
	}

	var (
		created dbgen.User
		event   dbgen.DomainEvent
	)
	err = s.tx.InTx(ctx, func(q dbgen.Querier) error {
		row, err := q.CreateUser(ctx, dbgen.CreateUserParams{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Phone:        common.OptionalText(in.Phone),
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return common.NewAppError("EMAIL_ALREADY_USED", "email is already registered", http.StatusConflict, err)
			}
			return fmt.Errorf("create user: %w", err)
		}
		_, balance, err := rewards.NewLedger(q).GrantWelcome(ctx, row.ID, s.welcomeBonus)
		if err != nil {
			return fmt.Errorf("grant welcome bonus: %w", err)
		}
		row.RewardPoints = int32(balance)
		created = row

		event, err = events.Record(ctx, q, events.TopicUserSignedUp, row.ID, events.UserSignedUp{
			UserID:       common.UUIDString(row.ID),
			Email:        row.Email,
			Name:         row.Name,
			WelcomeBonus: s.welcomeBonus,
		})
		return err
	})
	if err != nil {
		return LoginResult{}, err
	}
	s.bus.PublishLogged(ctx, event)
	obs.Logger(ctx).Info().Str("user_id", common.UUIDString(created.ID)).Msg("user_signed_up")

	return s.issue(ctx, created, userAgent, ip)
}

// Login verifies credentials and issues a new access token and refresh session.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ip string) (LoginResult, error) {
	normalizedEmail := normalizeEmail(email)
	if normalizedEmail == "" || password == "" {
		return LoginResult{}, invalidCredentials()
	}
	dbUser, err := s.queries.GetUserByEmail(ctx, normalizedEmail)
	if err != nil {
		return LoginResult{}, invalidCredentials()
	}
	ok, err := argon2id.ComparePasswordAndHash(password, dbUser.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials()
	}
	return s.issue(ctx, dbUser, userAgent, ip)
}

// Refresh validates a refresh token, revokes its session and opens a new one. A revoked or
// expired token is rejected, so each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent, ip string) (LoginResult, error) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return LoginResult{}, invalidRefresh()
	}
	session, err := s.queries.GetSessionByRefreshHash(ctx, common.Sha256Hex(token))
	if err != nil {
		return LoginResult{}, invalidRefresh()
	}
	if session.RevokedAt.Valid || !session.ExpiresAt.Valid || !s.now().Before(session.ExpiresAt.Time) {
		return LoginResult{}, invalidRefresh()
	}
	dbUser, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		return LoginResult{}, invalidRefresh()
	}

	var (
		raw       string
		expiresAt time.Time
	)
	err = s.tx.InTx(ctx, func(q dbgen.Querier) error {
		if err := q.RevokeSession(ctx, session.ID); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
		var err error
		raw, expiresAt, err = s.createSession(ctx, q, dbUser.ID, userAgent, ip)
		return err
	})
	if err != nil {
		return LoginResult{}, err
	}

	access, accessExpiry, err := s.signAccessToken(dbUser)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{
		User:          UserFromModel(dbUser),
		AccessToken:   access,
		AccessExpiry:  accessExpiry,
		RefreshToken:  raw,
		RefreshExpiry: expiresAt,
	}, nil
}

// Logout revokes the refresh session and returns the user it belonged to, or "" when the
// token matches no live session.
func (s *Service) Logout(ctx context.Context, refreshToken string) (string, error) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return "", nil
	}
	session, err := s.queries.GetSessionByRefreshHash(ctx, common.Sha256Hex(token))
	if err != nil || session.RevokedAt.Valid {
		return "", nil
	}
	if err := s.queries.RevokeSession(ctx, session.ID); err != nil {
		return "", fmt.Errorf("revoke session: %w", err)
	}
	return common.UUIDString(session.UserID), nil
}

// Me fetches the current authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	id, err := common.ParseUUID(userID)
	if err != nil {
		return User{}, common.ErrUnauthorized("unauthorized")
	}
	dbUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		return User{}, common.ErrUnauthorized("unauthorized")
	}
	return UserFromModel(dbUser), nil
}

// ParseAccessToken validates an access token and returns its subject and roles.
func (s *Service) ParseAccessToken(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.ErrUnauthorized("missing token")
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != s.rules.algorithm {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	claims, err := s.rules.claims(parsed, algorithm, s.now())
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return claims, nil
}

func (s *Service) issue(ctx context.Context, u dbgen.User, userAgent, ip string) (LoginResult, error) {
	access, accessExpiry, err := s.signAccessToken(u)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	raw, refreshExpiry, err := s.createSession(ctx, s.queries, u.ID, userAgent, ip)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		User:          UserFromModel(u),
		AccessToken:   access,
		AccessExpiry:  accessExpiry,
		RefreshToken:  raw,
		RefreshExpiry: refreshExpiry,
	}, nil
}

func (s *Service) createSession(ctx context.Context, q dbgen.Querier, userID pgtype.UUID, userAgent, ip string) (string, time.Time, error) {
	raw, err := common.RandomToken(refreshTokenBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate refresh token: %w", err)
	}
	expiresAt := s.now().Add(s.refreshTTL)
	if _, err := q.CreateSession(ctx, dbgen.CreateSessionParams{
		UserID:           userID,
		RefreshTokenHash: common.Sha256Hex(raw),
		UserAgent:        common.OptionalText(userAgent),
		Ip:               common.OptionalText(ip),
		ExpiresAt:        pgtype.Timestamptz{Time: expiresAt, Valid: true},
	}); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	return raw, expiresAt, nil
}

func (s *Service) signAccessToken(u dbgen.User) (string, time.Time, error) {
	userID := common.UUIDString(u.ID)
	if userID == "" {
		return "", time.Time{}, errors.New("auth: invalid user identifier")
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(userID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(rolesClaim, roles).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

// UserFromModel maps a users row to the public payload.
func UserFromModel(u dbgen.User) User {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	var created time.Time
	if u.CreatedAt.Valid {
		created = u.CreatedAt.Time
	}
	return User{
		ID:           common.UUIDString(u.ID),
		Name:         u.Name,
		Email:        u.Email,
		Phone:        common.TextValue(u.Phone),
		RewardPoints: int(u.RewardPoints),
		Roles:        roles,
		CreatedAt:    created,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidCredentials() *common.AppError {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func invalidRefresh() *common.AppError {
	return common.NewAppError("UNAUTHORIZED", "invalid refresh token", http.StatusUnauthorized, nil)
}
