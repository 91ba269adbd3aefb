package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campuscare/grievance-management/internal/core/events"
)

// EventHandler turns domain events into outbound notifications. Delivery is
// fire-and-forget off the request path; the bus logs failures.
type EventHandler struct {
	mailer  Mailer
	baseURL string
	logger  *slog.Logger
}

func NewEventHandler(mailer Mailer, baseURL string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		mailer:  mailer,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Register subscribes to every event type this handler renders.
func (h *EventHandler) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeUserCreated, h.HandleUserCreated)
	bus.Subscribe(events.EventTypePasswordResetRequested, h.HandlePasswordResetRequested)
	bus.Subscribe(events.EventTypeComplaintResolved, h.HandleComplaintResolved)
	bus.Subscribe(events.EventTypeComplaintReopened, h.HandleComplaintReopened)
}

// HandleUserCreated mails the temporary credentials. The password exists
// only in this message; the recipient must rotate it on first login.
func (h *EventHandler) HandleUserCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	msg := Message{
		To:      e.Email,
		Subject: "Your grievance portal account",
		Body: fmt.Sprintf(
			"Hello %s,\n\nAn account has been created for you.\n\nEmail: %s\nTemporary password: %s\n\nSign in at %s and change your password immediately.\n",
			e.Name, e.Email, e.TempPassword, h.baseURL),
	}
	return h.mailer.Send(ctx, msg)
}

func (h *EventHandler) HandlePasswordResetRequested(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PasswordResetRequestedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	msg := Message{
		To:      e.Email,
		Subject: "Password reset request",
		Body: fmt.Sprintf(
			"A password reset was requested for your account.\n\nReset link: %s/reset-password?token=%s\n\nIf you did not request this, you can ignore this message.\n",
			h.baseURL, e.ResetToken),
	}
	return h.mailer.Send(ctx, msg)
}

func (h *EventHandler) HandleComplaintResolved(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ComplaintResolvedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	msg := Message{
		To:      e.OwnerEmail,
		Subject: fmt.Sprintf("Complaint %s resolved", e.ComplaintCode),
		Body: fmt.Sprintf(
			"Your complaint %s has been resolved.\n\nResolution note: %s\n\nPlease sign in to acknowledge the resolution and rate it.\n",
			e.ComplaintCode, e.Acknowledgment),
	}
	return h.mailer.Send(ctx, msg)
}

func (h *EventHandler) HandleComplaintReopened(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ComplaintReopenedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	msg := Message{
		To:      e.OwnerEmail,
		Subject: fmt.Sprintf("Complaint %s reopened", e.ComplaintCode),
		Body: fmt.Sprintf(
			"Your complaint %s has been reopened for further review.\n\nRemarks: %s\n",
			e.ComplaintCode, e.Remarks),
	}
	return h.mailer.Send(ctx, msg)
}
