package rewards_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/rewards"
)

// memQueries mimics the SQL guards: balances never go negative and the welcome
// bonus row is unique per user.
type memQueries struct {
	users   map[pgtype.UUID]*dbgen.User
	history []dbgen.RewardHistory
}

func newMem(points int32) (*memQueries, pgtype.UUID) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	return &memQueries{users: map[pgtype.UUID]*dbgen.User{id: {ID: id, Name: "Asha", RewardPoints: points}}}, id
}

func (m *memQueries) AdjustUserRewardPoints(_ context.Context, arg dbgen.AdjustUserRewardPointsParams) (int32, error) {
	u, ok := m.users[arg.ID]
	if !ok || u.RewardPoints+arg.Delta < 0 {
		return 0, pgx.ErrNoRows
	}
	u.RewardPoints += arg.Delta
	return u.RewardPoints, nil
}

func (m *memQueries) InsertRewardHistory(_ context.Context, arg dbgen.InsertRewardHistoryParams) (dbgen.RewardHistory, error) {
	row := dbgen.RewardHistory{
		ID:      pgtype.UUID{Bytes: uuid.New(), Valid: true},
		UserID:  arg.UserID,
		Points:  arg.Points,
		Reason:  arg.Reason,
		OrderID: arg.OrderID,
	}
	m.history = append(m.history, row)
	return row, nil
}

func (m *memQueries) InsertWelcomeBonus(ctx context.Context, arg dbgen.InsertWelcomeBonusParams) (dbgen.RewardHistory, error) {
	for _, h := range m.history {
		if h.UserID == arg.UserID && h.Reason == string(rewards.ReasonWelcome) {
			return dbgen.RewardHistory{}, pgx.ErrNoRows
		}
	}
	return m.InsertRewardHistory(ctx, dbgen.InsertRewardHistoryParams{UserID: arg.UserID, Points: arg.Points, Reason: string(rewards.ReasonWelcome)})
}

func (m *memQueries) GetUserByID(_ context.Context, id pgtype.UUID) (dbgen.User, error) {
	u, ok := m.users[id]
	if !ok {
		return dbgen.User{}, pgx.ErrNoRows
	}
	return *u, nil
}

func (m *memQueries) ListRewardHistoryByUser(_ context.Context, arg dbgen.ListRewardHistoryByUserParams) ([]dbgen.RewardHistory, error) {
	var out []dbgen.RewardHistory
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].UserID == arg.UserID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func TestWelcomeBonusGrantedOnce(t *testing.T) {
	q, user := newMem(0)
	ledger := rewards.NewLedger(q)
	ctx := context.Background()

	granted, balance, err := ledger.GrantWelcome(ctx, user, 150)
	require.NoError(t, err)
	require.True(t, granted)
	require.Equal(t, 150, balance)

	granted, balance, err = ledger.GrantWelcome(ctx, user, 150)
	require.NoError(t, err)
	require.False(t, granted)
	require.Equal(t, 150, balance)
	require.Len(t, q.history, 1)
}

func TestRedeemThenEarn(t *testing.T) {
	q, user := newMem(100)
	ledger := rewards.NewLedger(q)
	ctx := context.Background()
	order := pgtype.UUID{Bytes: uuid.New(), Valid: true}

	bal, err := ledger.Redeem(ctx, user, order, 40)
	require.NoError(t, err)
	require.Equal(t, 60, bal)
	bal, err = ledger.Earn(ctx, user, order, 28)
	require.NoError(t, err)
	require.Equal(t, 88, bal)

	require.Len(t, q.history, 2)
	require.Equal(t, int32(-40), q.history[0].Points)
	require.Equal(t, string(rewards.ReasonRedeemed), q.history[0].Reason)
	require.Equal(t, order, q.history[1].OrderID)
}

func TestRedeemBeyondBalanceFails(t *testing.T) {
	q, user := newMem(10)
	_, err := rewards.NewLedger(q).Redeem(context.Background(), user, pgtype.UUID{}, 11)
	require.ErrorIs(t, err, rewards.ErrInsufficientPoints)
	require.Empty(t, q.history)
	require.Equal(t, int32(10), q.users[user].RewardPoints)
}

func TestZeroMovesWriteNothing(t *testing.T) {
	q, user := newMem(5)
	bal, err := rewards.NewLedger(q).Earn(context.Background(), user, pgtype.UUID{}, 0)
	require.NoError(t, err)
	require.Equal(t, 5, bal)
	require.Empty(t, q.history)
}

func TestNextMilestone(t *testing.T) {
	cases := map[int]int{0: 500, 1: 500, 150: 500, 500: 500, 501: 1000, 1499: 1500}
	for points, want := range cases {
		require.Equal(t, want, rewards.NextMilestone(points, 500), "points=%d", points)
	}
	require.Equal(t, 100, rewards.NextMilestone(30, 100))
}

func TestForUserHandler(t *testing.T) {
	q, user := newMem(0)
	_, _, err := rewards.NewLedger(q).GrantWelcome(context.Background(), user, 150)
	require.NoError(t, err)
	h := &rewards.Handler{Svc: &rewards.Service{Q: q, MilestoneStep: 500}}
	userID := common.UUIDString(user)

	call := func(authed, param string) *httptest.ResponseRecorder {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("userId", param)
		ctx := context.WithValue(common.WithUserID(context.Background(), authed), chi.RouteCtxKey, rctx)
		rr := httptest.NewRecorder()
		h.ForUser(rr, httptest.NewRequest(http.MethodGet, "/api/rewards/user/"+param, nil).WithContext(ctx))
		return rr
	}

	rr := call(userID, userID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"points":150`)
	require.Contains(t, rr.Body.String(), `"pointsToMilestone":350`)
	require.Contains(t, rr.Body.String(), `"reason":"welcome_bonus"`)

	require.Equal(t, http.StatusForbidden, call(uuid.NewString(), userID).Code)
}
