package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// fakeQueries keeps users, sessions, reward rows and events in memory. Methods the auth
// flows never call fall through to the nil embedded Querier and panic.
type fakeQueries struct {
	dbgen.Querier

	mu           sync.Mutex
	usersByEmail map[string]dbgen.User
	usersByID    map[string]dbgen.User
	sessions     map[string]dbgen.Session
	welcomed     map[string]bool
	history      []dbgen.RewardHistory
	events       []dbgen.DomainEvent
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		usersByEmail: make(map[string]dbgen.User),
		usersByID:    make(map[string]dbgen.User),
		sessions:     make(map[string]dbgen.Session),
		welcomed:     make(map[string]bool),
	}
}

func (f *fakeQueries) addUser(u dbgen.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usersByEmail[u.Email] = u
	f.usersByID[uuidKey(u.ID)] = u
}

func (f *fakeQueries) CreateUser(_ context.Context, arg dbgen.CreateUserParams) (dbgen.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.usersByEmail[arg.Email]; exists {
		return dbgen.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	u := dbgen.User{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Phone:        arg.Phone,
		Roles:        []string{"customer"},
		CreatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.usersByEmail[u.Email] = u
	f.usersByID[uuidKey(u.ID)] = u
	return u, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (dbgen.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByEmail[strings.ToLower(email)]
	if !ok {
		return dbgen.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id pgtype.UUID) (dbgen.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByID[uuidKey(id)]
	if !ok {
		return dbgen.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) AdjustUserRewardPoints(_ context.Context, arg dbgen.AdjustUserRewardPointsParams) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := uuidKey(arg.ID)
	u, ok := f.usersByID[key]
	if !ok || u.RewardPoints+arg.Delta < 0 {
		return 0, pgx.ErrNoRows
	}
	u.RewardPoints += arg.Delta
	f.usersByID[key] = u
	f.usersByEmail[u.Email] = u
	return u.RewardPoints, nil
}

func (f *fakeQueries) InsertRewardHistory(_ context.Context, arg dbgen.InsertRewardHistoryParams) (dbgen.RewardHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := dbgen.RewardHistory{UserID: arg.UserID, Points: arg.Points, Reason: arg.Reason, OrderID: arg.OrderID}
	f.history = append(f.history, row)
	return row, nil
}

func (f *fakeQueries) InsertWelcomeBonus(_ context.Context, arg dbgen.InsertWelcomeBonusParams) (dbgen.RewardHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := uuidKey(arg.UserID)
	if f.welcomed[key] {
		return dbgen.RewardHistory{}, pgx.ErrNoRows
	}
	f.welcomed[key] = true
	row := dbgen.RewardHistory{UserID: arg.UserID, Points: arg.Points, Reason: "welcome_bonus"}
	f.history = append(f.history, row)
	return row, nil
}

func (f *fakeQueries) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := dbgen.DomainEvent{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     arg.Payload,
		OccurredAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeQueries) CreateSession(_ context.Context, arg dbgen.CreateSessionParams) (dbgen.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := dbgen.Session{
		ID:               pgtype.UUID{Bytes: uuid.New(), Valid: true},
		UserID:           arg.UserID,
		RefreshTokenHash: arg.RefreshTokenHash,
		UserAgent:        arg.UserAgent,
		Ip:               arg.Ip,
		ExpiresAt:        arg.ExpiresAt,
		CreatedAt:        pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.sessions[arg.RefreshTokenHash] = s
	return s, nil
}

func (f *fakeQueries) GetSessionByRefreshHash(_ context.Context, hash string) (dbgen.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[hash]
	if !ok {
		return dbgen.Session{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeQueries) RevokeSession(_ context.Context, id pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, s := range f.sessions {
		if s.ID == id && !s.RevokedAt.Valid {
			s.RevokedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			f.sessions[hash] = s
		}
	}
	return nil
}

func (f *fakeQueries) liveSession(hash string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[hash]
	return ok && !s.RevokedAt.Valid
}

type recordingCarts struct {
	cleared []string
}

func (r *recordingCarts) Clear(_ context.Context, userID string) error {
	r.cleared = append(r.cleared, userID)
	return nil
}

func uuidKey(id pgtype.UUID) string {
	return uuid.UUID(id.Bytes).String()
}

func newTestService(queries *fakeQueries) (*Service, error) {
	return NewService(Config{
		Queries:         queries,
		Secret:          "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "backend-resto",
		Audience:        "resto-web",
		WelcomeBonus:    150,
	})
}
