package events

import "github.com/shopspring/decimal"

// Topic constants for domain events.
const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status_changed"
	TopicUserSignedUp       = "user.signed_up"
	TopicReviewCreated      = "review.created"
)

// Topics returns every topic the backend emits.
func Topics() []string {
	return []string{TopicOrderPlaced, TopicOrderStatusChanged, TopicUserSignedUp, TopicReviewCreated}
}

// OrderPlaced is the payload of TopicOrderPlaced.
type OrderPlaced struct {
	OrderID               string          `json:"orderId"`
	UserID                string          `json:"userId"`
	Email                 string          `json:"email"`
	Name                  string          `json:"name"`
	ItemCount             int             `json:"itemCount"`
	Total                 decimal.Decimal `json:"total"`
	PointsEarned          int             `json:"pointsEarned"`
	PointsRedeemed        int             `json:"pointsRedeemed"`
	CouponCode            string          `json:"couponCode,omitempty"`
	EstimatedDeliveryTime string          `json:"estimatedDeliveryTime"`
}

// OrderStatusChanged is the payload of TopicOrderStatusChanged.
type OrderStatusChanged struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// UserSignedUp is the payload of TopicUserSignedUp.
type UserSignedUp struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	WelcomeBonus int    `json:"welcomeBonus"`
}

// ReviewCreated is the payload of TopicReviewCreated.
type ReviewCreated struct {
	ReviewID string `json:"reviewId"`
	DishID   string `json:"dishId"`
	UserID   string `json:"userId"`
	Rating   int    `json:"rating"`
}
