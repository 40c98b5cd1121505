package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/obs"
)

const defaultBrand = "Spice Route Kitchen"

var (
	orderConfirmationTmpl = template.Must(template.New("order").Parse(`<h2>Thanks for your order, {{.Name}}!</h2>
<p>Order <strong>{{.OrderID}}</strong> has been received and will reach you in about {{.EstimatedDeliveryTime}}.</p>
<ul>
<li>Items: {{.ItemCount}}</li>
<li>Total: &#8377;{{.Total}}</li>
{{- if .CouponCode}}
<li>Coupon: {{.CouponCode}}</li>
{{- end}}
{{- if .PointsRedeemed}}
<li>Reward points used: {{.PointsRedeemed}}</li>
{{- end}}
<li>Reward points earned: {{.PointsEarned}}</li>
</ul>
<p>{{.Brand}}</p>
`))
	welcomeTmpl = template.Must(template.New("welcome").Parse(`<h2>Welcome to {{.Brand}}, {{.Name}}!</h2>
{{- if .WelcomeBonus}}
<p>We have added <strong>{{.WelcomeBonus}}</strong> reward points to your account. Use them on your first order.</p>
{{- end}}
<p>Happy eating!</p>
`))
)

// EmailHandlers processes email tasks enqueued by events.TaskNotifier.
type EmailHandlers struct {
	Mail  common.EmailSender
	Brand string
}

// Register binds every email task type on mux.
func (h EmailHandlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(events.TaskOrderConfirmation, h.HandleOrderConfirmation)
	mux.HandleFunc(events.TaskWelcomeEmail, h.HandleWelcome)
}

// HandleOrderConfirmation sends the order confirmation email.
func (h EmailHandlers) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var p events.OrderPlaced
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		obs.RecordEmailTask(t.Type(), "invalid")
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	data := struct {
		events.OrderPlaced
		Total string
		Brand string
	}{OrderPlaced: p, Total: p.Total.StringFixed(2), Brand: h.brand()}
	return h.send(ctx, t.Type(), p.Email, "Your order "+shortID(p.OrderID)+" is confirmed", orderConfirmationTmpl, data)
}

// HandleWelcome sends the signup welcome email.
func (h EmailHandlers) HandleWelcome(ctx context.Context, t *asynq.Task) error {
	var p events.UserSignedUp
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		obs.RecordEmailTask(t.Type(), "invalid")
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	data := struct {
		events.UserSignedUp
		Brand string
	}{UserSignedUp: p, Brand: h.brand()}
	return h.send(ctx, t.Type(), p.Email, "Welcome to "+h.brand(), welcomeTmpl, data)
}

func (h EmailHandlers) send(ctx context.Context, taskType, to, subject string, tmpl *template.Template, data any) error {
	log := obs.Logger(ctx).With().Str("task", taskType).Logger()
	to = strings.TrimSpace(to)
	if to == "" {
		obs.RecordEmailTask(taskType, "skipped")
		log.Warn().Msg("email task without recipient")
		return nil
	}
	if h.Mail == nil {
		obs.RecordEmailTask(taskType, "error")
		return fmt.Errorf("email sender not configured: %w", asynq.SkipRetry)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		obs.RecordEmailTask(taskType, "error")
		return fmt.Errorf("render %s: %v: %w", taskType, err, asynq.SkipRetry)
	}
	if err := h.Mail.Send(to, subject, body.String()); err != nil {
		obs.RecordEmailTask(taskType, "error")
		log.Warn().Err(err).Msg("email send failed")
		return fmt.Errorf("send %s: %w", taskType, err)
	}
	obs.RecordEmailTask(taskType, "success")
	return nil
}

func (h EmailHandlers) brand() string {
	if h.Brand != "" {
		return h.Brand
	}
	return defaultBrand
}

func shortID(id string) string {
	if len(id) > 8 {
		return "#" + strings.ToUpper(id[:8])
	}
	return "#" + strings.ToUpper(id)
}
