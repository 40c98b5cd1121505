package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

type queryProvider interface {
	ListDishes(ctx context.Context) ([]dbgen.Dish, error)
	GetDishByID(ctx context.Context, id pgtype.UUID) (dbgen.Dish, error)
	ListDishesByIDs(ctx context.Context, ids []pgtype.UUID) ([]dbgen.Dish, error)
}

// ErrDishNotFound is returned when a dish id does not exist.
var ErrDishNotFound = errors.New("dish not found")

// Service loads the menu, caches it, and applies filters.
type Service struct {
	queries queryProvider
	cache   *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache}, nil
}

// ParseFilter normalises raw query values into a Filter.
func (s *Service) ParseFilter(values url.Values) (Filter, error) {
	f := Filter{Search: strings.TrimSpace(values.Get("search"))}
	if f.Search == "" {
		f.Search = strings.TrimSpace(values.Get("q"))
	}

	category := strings.ToLower(strings.TrimSpace(values.Get("category")))
	if category != "" && category != CategoryAll && !KnownCategory(category) {
		return f, badRequest("category", "unknown category", nil)
	}
	f.Category = category

	diet, ok := parseDiet(values.Get("diet"))
	if !ok {
		return f, badRequest("diet", "diet must be one of all, veg, non-veg", nil)
	}
	f.Diet = diet

	sortKey, ok := parseSort(values.Get("sort"))
	if !ok {
		return f, badRequest("sort", "sort must be one of popular, rating, price-low, price-high", nil)
	}
	f.Sort = sortKey
	return f, nil
}

// All returns the full menu in menu order, served from cache when possible.
func (s *Service) All(ctx context.Context) ([]Dish, error) {
	var cached []Dish
	if ok, err := s.cache.GetJSON(ctx, dishesCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.queries.ListDishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}
	dishes := make([]Dish, 0, len(rows))
	for _, row := range rows {
		dishes = append(dishes, FromRow(row))
	}
	_ = s.cache.SetJSON(ctx, dishesCacheKey, dishes)
	return dishes, nil
}

// List returns the menu narrowed and ordered by f.
func (s *Service) List(ctx context.Context, f Filter) ([]Dish, error) {
	dishes, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(dishes, f), nil
}

// Categories returns the menu tabs with dish counts.
func (s *Service) Categories(ctx context.Context) ([]CategoryDescriptor, error) {
	dishes, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(dishes), nil
}

// Get returns a single dish.
func (s *Service) Get(ctx context.Context, id string) (Dish, error) {
	uid, err := common.ParseUUID(id)
	if err != nil {
		return Dish{}, badRequest("id", "invalid dish id", err)
	}
	row, err := s.queries.GetDishByID(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dish{}, notFound(err)
		}
		return Dish{}, fmt.Errorf("get dish: %w", err)
	}
	return FromRow(row), nil
}

// Lookup loads current dish rows straight from the database, keyed by id. Prices used
// for charging always come from here, never from the cache. Any unknown id fails
// with ErrDishNotFound.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]Dish, error) {
	out, err := s.Find(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		uid, err := common.ParseUUID(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDishNotFound, id)
		}
		if _, ok := out[common.UUIDString(uid)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrDishNotFound, id)
		}
	}
	return out, nil
}

// Find is Lookup without the completeness check: ids that are malformed or no
// longer on the menu are simply absent from the result.
func (s *Service) Find(ctx context.Context, ids []string) (map[string]Dish, error) {
	seen := make(map[string]struct{}, len(ids))
	keys := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		uid, err := common.ParseUUID(id)
		if err != nil {
			continue
		}
		canonical := common.UUIDString(uid)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		keys = append(keys, uid)
	}
	if len(keys) == 0 {
		return map[string]Dish{}, nil
	}
	rows, err := s.queries.ListDishesByIDs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list dishes by id: %w", err)
	}
	out := make(map[string]Dish, len(rows))
	for _, row := range rows {
		d := FromRow(row)
		out[d.ID] = d
	}
	return out, nil
}

// Invalidate drops the cached menu.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, dishesCacheKey)
}

// FromRow maps a database row to the public payload.
func FromRow(row dbgen.Dish) Dish {
	return Dish{
		ID:            common.UUIDString(row.ID),
		Name:          row.Name,
		Description:   row.Description,
		Category:      row.Category,
		Price:         row.Price,
		ImageURL:      row.ImageUrl,
		IsVeg:         row.IsVeg,
		IsPopular:     row.IsPopular,
		IsNew:         row.IsNew,
		IsChefSpecial: row.IsChefSpecial,
		Rating:        row.Rating,
		ReviewCount:   int(row.ReviewCount),
	}
}

func notFound(err error) *common.AppError {
	return &common.AppError{Code: "NOT_FOUND", Message: "dish not found", HTTPStatus: http.StatusNotFound, Err: errors.Join(ErrDishNotFound, err)}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
