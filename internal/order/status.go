package order

// Order lifecycle statuses in delivery order.
const (
	StatusReceived       = "received"
	StatusPreparing      = "preparing"
	StatusOutForDelivery = "out-for-delivery"
	StatusDelivered      = "delivered"
)

// StatusDescriptor is the display metadata of a status used by the order tracker.
type StatusDescriptor struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Icon   string `json:"icon"`
	Step   int    `json:"step"`
}

var statusTable = []StatusDescriptor{
	{Status: StatusReceived, Label: "Order Received", Icon: "receipt", Step: 1},
	{Status: StatusPreparing, Label: "Preparing", Icon: "chef-hat", Step: 2},
	{Status: StatusOutForDelivery, Label: "Out for Delivery", Icon: "bike", Step: 3},
	{Status: StatusDelivered, Label: "Delivered", Icon: "check-circle", Step: 4},
}

// Statuses returns the descriptor table in lifecycle order.
func Statuses() []StatusDescriptor {
	out := make([]StatusDescriptor, len(statusTable))
	copy(out, statusTable)
	return out
}

// Describe returns the descriptor for status. Unknown statuses get step 0 and the raw value as label.
func Describe(status string) StatusDescriptor {
	for _, d := range statusTable {
		if d.Status == status {
			return d
		}
	}
	return StatusDescriptor{Status: status, Label: status, Icon: "circle"}
}

// KnownStatus reports whether status is part of the lifecycle.
func KnownStatus(status string) bool {
	return Describe(status).Step > 0
}

// CanTransition reports whether an order may move from one status to another.
// Transitions only move forward; skipping steps is allowed.
func CanTransition(from, to string) bool {
	f, t := Describe(from).Step, Describe(to).Step
	return f > 0 && t > 0 && t > f
}
