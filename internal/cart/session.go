package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "cart:"
	maxRetries = 5
	// MaxQuantity bounds a single cart line.
	MaxQuantity = 99
)

var (
	// ErrLineNotFound indicates the dish is not in the cart.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInvalidQuantity is returned for quantities outside 0..MaxQuantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrConflict is returned when concurrent writers keep racing on the same session.
	ErrConflict = errors.New("cart session changed concurrently")
)

// Line is a dish and how many of it the user wants.
type Line struct {
	DishID   string `json:"dishId"`
	Quantity int    `json:"quantity"`
}

// Session is the per-user cart context persisted between requests.
type Session struct {
	UserID       string    `json:"userId"`
	Lines        []Line    `json:"lines"`
	CouponCode   string    `json:"couponCode,omitempty"`
	RewardPoints int       `json:"rewardPoints"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DishIDs returns the dish ids in line order.
func (s Session) DishIDs() []string {
	ids := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		ids = append(ids, l.DishID)
	}
	return ids
}

// Empty reports whether the session holds no lines.
func (s Session) Empty() bool { return len(s.Lines) == 0 }

// Add increments the line for dishID, appending it when absent.
func (s *Session) Add(dishID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	for i := range s.Lines {
		if s.Lines[i].DishID == dishID {
			next := s.Lines[i].Quantity + qty
			if next > MaxQuantity {
				return fmt.Errorf("%w: at most %d per dish", ErrInvalidQuantity, MaxQuantity)
			}
			s.Lines[i].Quantity = next
			return nil
		}
	}
	if qty > MaxQuantity {
		return fmt.Errorf("%w: at most %d per dish", ErrInvalidQuantity, MaxQuantity)
	}
	s.Lines = append(s.Lines, Line{DishID: dishID, Quantity: qty})
	return nil
}

// SetQuantity overwrites the quantity of an existing line; zero removes it.
func (s *Session) SetQuantity(dishID string, qty int) error {
	if qty < 0 || qty > MaxQuantity {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	for i := range s.Lines {
		if s.Lines[i].DishID != dishID {
			continue
		}
		if qty == 0 {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
		} else {
			s.Lines[i].Quantity = qty
		}
		return nil
	}
	return ErrLineNotFound
}

// Remove deletes the line for dishID.
func (s *Session) Remove(dishID string) error {
	return s.SetQuantity(dishID, 0)
}

// Store keeps sessions as JSON documents in Redis.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
	Now    func() time.Time
}

func key(userID string) string { return keyPrefix + userID }

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 72 * time.Hour
	}
	return s.TTL
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns the user's session, or an empty one when none is stored.
func (s *Store) Load(ctx context.Context, userID string) (Session, error) {
	return s.load(ctx, s.Client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, userID string) (Session, error) {
	raw, err := c.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{UserID: userID, Lines: []Line{}}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load cart: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// unreadable sessions are replaced rather than wedging the user
		return Session{UserID: userID, Lines: []Line{}}, nil
	}
	if sess.Lines == nil {
		sess.Lines = []Line{}
	}
	sess.UserID = userID
	return sess, nil
}

// Update applies mutate to the stored session under optimistic locking and persists the result.
func (s *Store) Update(ctx context.Context, userID string, mutate func(*Session) error) (Session, error) {
	if s == nil || s.Client == nil {
		return Session{}, errors.New("cart store not configured")
	}
	k := key(userID)
	var out Session
	txf := func(tx *redis.Tx) error {
		sess, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := mutate(&sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.now().UTC()
		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode cart: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.ttl())
			return nil
		})
		if err != nil {
			return err
		}
		out = sess
		return nil
	}
	for i := 0; i < maxRetries; i++ {
		err := s.Client.Watch(ctx, txf, k)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Session{}, err
	}
	return Session{}, ErrConflict
}

// Clear deletes the user's session.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if s == nil || s.Client == nil {
		return nil
	}
	if err := s.Client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
