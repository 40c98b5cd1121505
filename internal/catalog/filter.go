package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Dish is the public menu item payload.
type Dish struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"imageUrl"`
	IsVeg         bool            `json:"isVeg"`
	IsPopular     bool            `json:"isPopular"`
	IsNew         bool            `json:"isNew"`
	IsChefSpecial bool            `json:"isChefSpecial"`
	Rating        decimal.Decimal `json:"rating"`
	ReviewCount   int             `json:"reviewCount"`
}

// Diet narrows dishes by the vegetarian flag.
type Diet string

const (
	DietAll    Diet = "all"
	DietVeg    Diet = "veg"
	DietNonVeg Diet = "non-veg"
)

// SortKey selects the ordering applied after filtering.
type SortKey string

const (
	SortNone      SortKey = ""
	SortPopular   SortKey = "popular"
	SortRating    SortKey = "rating"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// CategoryAll matches every category.
const CategoryAll = "all"

// Filter describes a menu query. The zero value matches every dish in input order.
type Filter struct {
	Category string
	Diet     Diet
	Search   string
	Sort     SortKey
}

// CategoryDescriptor is a menu tab with its dish count.
type CategoryDescriptor struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

var categoryTable = []CategoryDescriptor{
	{ID: "starters", Label: "Starters"},
	{ID: "main-course", Label: "Main Course"},
	{ID: "breads", Label: "Breads"},
	{ID: "desserts", Label: "Desserts"},
	{ID: "beverages", Label: "Beverages"},
}

// KnownCategory reports whether id is one of the menu categories.
func KnownCategory(id string) bool {
	for _, c := range categoryTable {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Apply filters then stably sorts dishes. The input slice is left untouched and
// dishes with equal sort keys keep their input order.
func Apply(dishes []Dish, f Filter) []Dish {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Dish, 0, len(dishes))
	for _, d := range dishes {
		if !matchesCategory(d, f.Category) || !matchesDiet(d, f.Diet) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(d.Name), needle) &&
			!strings.Contains(strings.ToLower(d.Description), needle) {
			continue
		}
		out = append(out, d)
	}
	if less := comparator(f.Sort); less != nil {
		slices.SortStableFunc(out, less)
	}
	return out
}

// Categories returns the "all" tab followed by each category with its count.
func Categories(dishes []Dish) []CategoryDescriptor {
	counts := make(map[string]int, len(categoryTable))
	for _, d := range dishes {
		counts[d.Category]++
	}
	out := make([]CategoryDescriptor, 0, len(categoryTable)+1)
	out = append(out, CategoryDescriptor{ID: CategoryAll, Label: "All Dishes", Count: len(dishes)})
	for _, c := range categoryTable {
		c.Count = counts[c.ID]
		out = append(out, c)
	}
	return out
}

func matchesCategory(d Dish, category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || category == CategoryAll || d.Category == category
}

func matchesDiet(d Dish, diet Diet) bool {
	switch diet {
	case DietVeg:
		return d.IsVeg
	case DietNonVeg:
		return !d.IsVeg
	default:
		return true
	}
}

func comparator(key SortKey) func(a, b Dish) int {
	switch key {
	case SortPopular:
		return func(a, b Dish) int { return cmp.Compare(boolRank(b.IsPopular), boolRank(a.IsPopular)) }
	case SortRating:
		return func(a, b Dish) int { return b.Rating.Cmp(a.Rating) }
	case SortPriceLow:
		return func(a, b Dish) int { return a.Price.Cmp(b.Price) }
	case SortPriceHigh:
		return func(a, b Dish) int { return b.Price.Cmp(a.Price) }
	default:
		return nil
	}
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseDiet(v string) (Diet, bool) {
	switch Diet(strings.ToLower(strings.TrimSpace(v))) {
	case "", DietAll:
		return DietAll, true
	case DietVeg:
		return DietVeg, true
	case DietNonVeg:
		return DietNonVeg, true
	default:
		return "", false
	}
}

func parseSort(v string) (SortKey, bool) {
	switch SortKey(strings.ToLower(strings.TrimSpace(v))) {
	case SortNone:
		return SortNone, true
	case SortPopular:
		return SortPopular, true
	case SortRating:
		return SortRating, true
	case SortPriceLow:
		return SortPriceLow, true
	case SortPriceHigh:
		return SortPriceHigh, true
	default:
		return "", false
	}
}
