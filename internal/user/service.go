package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/auth"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/db"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// Address types accepted by the address book.
const (
	TypeHome  = "home"
	TypeWork  = "work"
	TypeOther = "other"
)

// Address represents a delivery address in API-friendly format.
type Address struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Type          string    `json:"type"`
	AddressLine1  string    `json:"addressLine1"`
	AddressLine2  string    `json:"addressLine2,omitempty"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Pincode       string    `json:"pincode"`
	Landmark      string    `json:"landmark,omitempty"`
	ProofImageURL string    `json:"proofImageUrl,omitempty"`
	IsDefault     bool      `json:"isDefault"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AddressInput captures the payload for creating an address.
type AddressInput struct {
	Type         string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Pincode      string
	Landmark     string
	IsDefault    bool
}

// AddressPatch holds the fields of a partial update; nil fields are left unchanged.
type AddressPatch struct {
	Type         *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	Pincode      *string
	Landmark     *string
	IsDefault    *bool
}

// Service manages profiles and the address book.
type Service struct {
	Q  dbgen.Querier
	Tx db.TxRunner
}

// NewService constructs a user service. A nil tx runs statements without a transaction.
func NewService(q dbgen.Querier, tx db.TxRunner) *Service {
	if tx == nil {
		tx = db.Direct{Q: q}
	}
	return &Service{Q: q, Tx: tx}
}

// Profile returns the user with a fresh reward balance.
func (s *Service) Profile(ctx context.Context, userID string) (auth.User, error) {
	uid, err := common.ParseUUID(userID)
	if err != nil {
		return auth.User{}, common.ErrNotFound("user", err)
	}
	row, err := s.Q.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.User{}, common.ErrNotFound("user", err)
		}
		return auth.User{}, fmt.Errorf("get user: %w", err)
	}
	return auth.UserFromModel(row), nil
}

// List returns the user's addresses, default first then newest.
func (s *Service) List(ctx context.Context, userID string) ([]Address, error) {
	uid, err := common.ParseUUID(userID)
	if err != nil {
		return nil, common.ErrUnauthorized("unauthorized")
	}
	rows, err := s.Q.ListAddressesByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	out := make([]Address, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// Create inserts an address. The user's first address becomes the default, and a new
// default clears the previous one in the same transaction.
func (s *Service) Create(ctx context.Context, userID string, in AddressInput) (Address, error) {
	uid, err := common.ParseUUID(userID)
	if err != nil {
		return Address{}, common.ErrUnauthorized("unauthorized")
	}
	if !validType(in.Type) {
		return Address{}, common.ErrValidation("type", "type must be one of home, work, other")
	}
	var created dbgen.Address
	err = s.Tx.InTx(ctx, func(q dbgen.Querier) error {
		count, err := q.CountAddressesByUser(ctx, uid)
		if err != nil {
			return fmt.Errorf("count addresses: %w", err)
		}
		isDefault := in.IsDefault || count == 0
		if isDefault && count > 0 {
			if err := q.ClearDefaultAddress(ctx, uid); err != nil {
				return fmt.Errorf("clear default address: %w", err)
			}
		}
		created, err = q.CreateAddress(ctx, dbgen.CreateAddressParams{
			UserID:       uid,
			Type:         strings.ToLower(strings.TrimSpace(in.Type)),
			AddressLine1: strings.TrimSpace(in.AddressLine1),
			AddressLine2: common.OptionalText(in.AddressLine2),
			City:         strings.TrimSpace(in.City),
			State:        strings.TrimSpace(in.State),
			Pincode:      strings.TrimSpace(in.Pincode),
			Landmark:     common.OptionalText(in.Landmark),
			IsDefault:    isDefault,
		})
		if err != nil {
			return fmt.Errorf("create address: %w", err)
		}
		return nil
	})
	if err != nil {
		return Address{}, err
	}
	return FromModel(created), nil
}

// Update applies a partial update to an address owned by the user. isDefault=false is
// ignored: the default moves only when another address is made default.
func (s *Service) Update(ctx context.Context, userID, addressID string, patch AddressPatch) (Address, error) {
	uid, aid, err := ids(userID, addressID)
	if err != nil {
		return Address{}, err
	}
	if patch.Type != nil && !validType(*patch.Type) {
		return Address{}, common.ErrValidation("type", "type must be one of home, work, other")
	}
	var updated dbgen.Address
	err = s.Tx.InTx(ctx, func(q dbgen.Querier) error {
		if _, err := owned(ctx, q, uid, aid); err != nil {
			return err
		}
		params := dbgen.UpdateAddressParams{
			ID:           aid,
			UserID:       uid,
			Type:         optional(patch.Type),
			AddressLine1: optional(patch.AddressLine1),
			AddressLine2: optional(patch.AddressLine2),
			City:         optional(patch.City),
			State:        optional(patch.State),
			Pincode:      optional(patch.Pincode),
			Landmark:     optional(patch.Landmark),
		}
		if params.Type.Valid {
			params.Type.String = strings.ToLower(params.Type.String)
		}
		if patch.IsDefault != nil && *patch.IsDefault {
			if err := q.ClearDefaultAddress(ctx, uid); err != nil {
				return fmt.Errorf("clear default address: %w", err)
			}
			params.IsDefault = pgtype.Bool{Bool: true, Valid: true}
		}
		var err error
		updated, err = q.UpdateAddress(ctx, params)
		if err != nil {
			return fmt.Errorf("update address: %w", err)
		}
		return nil
	})
	if err != nil {
		return Address{}, err
	}
	return FromModel(updated), nil
}

// Delete removes an address. Deleting the default promotes the most recent remaining one.
func (s *Service) Delete(ctx context.Context, userID, addressID string) error {
	uid, aid, err := ids(userID, addressID)
	if err != nil {
		return err
	}
	return s.Tx.InTx(ctx, func(q dbgen.Querier) error {
		n, err := q.DeleteAddress(ctx, dbgen.DeleteAddressParams{ID: aid, UserID: uid})
		if err != nil {
			return fmt.Errorf("delete address: %w", err)
		}
		if n == 0 {
			return common.ErrNotFound("address", nil)
		}
		if err := q.PromoteLatestAddress(ctx, uid); err != nil {
			return fmt.Errorf("promote address: %w", err)
		}
		return nil
	})
}

// SetProof records the stored proof image URL on an address owned by the user.
func (s *Service) SetProof(ctx context.Context, userID, addressID, url string) (Address, error) {
	uid, aid, err := ids(userID, addressID)
	if err != nil {
		return Address{}, err
	}
	row, err := s.Q.SetAddressProofImage(ctx, dbgen.SetAddressProofImageParams{
		ID:            aid,
		UserID:        uid,
		ProofImageUrl: common.OptionalText(url),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Address{}, common.ErrNotFound("address", err)
		}
		return Address{}, fmt.Errorf("set proof image: %w", err)
	}
	return FromModel(row), nil
}

// Owned returns the address when it belongs to userID.
func (s *Service) Owned(ctx context.Context, userID, addressID string) (Address, error) {
	uid, aid, err := ids(userID, addressID)
	if err != nil {
		return Address{}, err
	}
	row, err := owned(ctx, s.Q, uid, aid)
	if err != nil {
		return Address{}, err
	}
	return FromModel(row), nil
}

// FromModel maps an addresses row to the API payload.
func FromModel(row dbgen.Address) Address {
	var created time.Time
	if row.CreatedAt.Valid {
		created = row.CreatedAt.Time
	}
	return Address{
		ID:            common.UUIDString(row.ID),
		UserID:        common.UUIDString(row.UserID),
		Type:          row.Type,
		AddressLine1:  row.AddressLine1,
		AddressLine2:  common.TextValue(row.AddressLine2),
		City:          row.City,
		State:         row.State,
		Pincode:       row.Pincode,
		Landmark:      common.TextValue(row.Landmark),
		ProofImageURL: common.TextValue(row.ProofImageUrl),
		IsDefault:     row.IsDefault,
		CreatedAt:     created,
	}
}

// owned loads an address and hides other users' rows behind a 404.
func owned(ctx context.Context, q dbgen.Querier, uid, aid pgtype.UUID) (dbgen.Address, error) {
	row, err := q.GetAddressByID(ctx, aid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Address{}, common.ErrNotFound("address", err)
		}
		return dbgen.Address{}, fmt.Errorf("get address: %w", err)
	}
	if row.UserID != uid {
		return dbgen.Address{}, common.ErrNotFound("address", nil)
	}
	return row, nil
}

func ids(userID, addressID string) (pgtype.UUID, pgtype.UUID, error) {
	uid, err := common.ParseUUID(userID)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, nil)
	}
	aid, err := common.ParseUUID(addressID)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, common.ErrNotFound("address", err)
	}
	return uid, aid, nil
}

func optional(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return common.OptionalText(*v)
}

func validType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case TypeHome, TypeWork, TypeOther:
		return true
	default:
		return false
	}
}
