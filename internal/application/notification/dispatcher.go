package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pressmarket/backend/internal/domain/notification"
	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EmailSender delivers a single email. Implementations live in the
// infrastructure layer; the send must respect the context deadline.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// UserDirectory resolves a recipient's email address
type UserDirectory interface {
	EmailFor(ctx context.Context, userID uint64) (string, error)
}

// DispatcherConfig holds dispatcher tuning knobs
type DispatcherConfig struct {
	// EmailTimeout bounds a single email send attempt. Exceeding it is a
	// dispatch failure, not a blocked caller.
	EmailTimeout time.Duration
	// IdempotencyTTL is how long an event ID is remembered as dispatched
	IdempotencyTTL time.Duration
}

// DefaultDispatcherConfig returns production defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		EmailTimeout:   5 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Dispatcher fans a publication lifecycle transition out to an email send
// and an in-app notification record. Every path in here is best-effort: a
// failure is logged, possibly surfaced as an advisory notification, and
// never propagated back to the transition that triggered it.
type Dispatcher struct {
	notifRepo notification.Repository
	users     UserDirectory
	email     EmailSender
	dedup     shared.IdempotencyStore
	config    DispatcherConfig
	logger    *zap.Logger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(
	notifRepo notification.Repository,
	users UserDirectory,
	email EmailSender,
	dedup shared.IdempotencyStore,
	config DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifRepo: notifRepo,
		users:     users,
		email:     email,
		dedup:     dedup,
		config:    config,
		logger:    logger,
	}
}

// EventTypes returns the lifecycle events the dispatcher subscribes to
func (d *Dispatcher) EventTypes() []string {
	return []string{
		publication.EventTypePublicationSubmitted,
		publication.EventTypePublicationApproved,
		publication.EventTypePublicationRejected,
	}
}

// Handle processes one lifecycle event. It always returns nil: notification
// delivery is an advisory side channel and must never fail the transition.
func (d *Dispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	if d.dedup != nil {
		fresh, err := d.dedup.MarkProcessed(ctx, event.EventID().String(), d.config.IdempotencyTTL)
		if err != nil {
			d.logger.Warn("idempotency check failed, dispatching anyway",
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		} else if !fresh {
			d.logger.Debug("event already dispatched",
				zap.String("event_id", event.EventID().String()),
			)
			return nil
		}
	}

	switch e := event.(type) {
	case *publication.PublicationSubmittedEvent:
		d.dispatch(ctx, e.PublicationID, e.OwnerUserID, notification.TypePublicationSubmitted,
			"Publication submitted",
			fmt.Sprintf("%s has been submitted for review.", e.Name),
			fmt.Sprintf("<p>Your publication <strong>%s</strong> has been submitted and is awaiting review.</p>", e.Name),
		)
	case *publication.PublicationApprovedEvent:
		body := fmt.Sprintf("<p>Your publication <strong>%s</strong> has been approved and is now live.</p>", e.Name)
		if e.Comments != "" {
			body += fmt.Sprintf("<p>Reviewer comments: %s</p>", e.Comments)
		}
		d.dispatch(ctx, e.PublicationID, e.OwnerUserID, notification.TypePublicationApproved,
			"Publication approved",
			fmt.Sprintf("%s has been approved.", e.Name),
			body,
		)
	case *publication.PublicationRejectedEvent:
		d.dispatch(ctx, e.PublicationID, e.OwnerUserID, notification.TypePublicationRejected,
			"Publication rejected",
			fmt.Sprintf("%s has been rejected: %s", e.Name, e.Reason),
			fmt.Sprintf("<p>Your publication <strong>%s</strong> was rejected.</p><p>Reason: %s</p>", e.Name, e.Reason),
		)
	default:
		d.logger.Error("unexpected event type",
			zap.String("event_type", event.EventType()),
		)
	}

	return nil
}

// dispatch runs the fan-out for one transition: resolve the recipient, try
// the email, always try the in-app record. An email failure additionally
// produces an advisory record so operators can see the degraded path.
func (d *Dispatcher) dispatch(ctx context.Context, pubID uint64, owner *uint64, typ notification.Type, title, message, htmlBody string) {
	if owner == nil {
		// Admin-registered record with no external submitter; nothing
		// to deliver.
		d.logger.Debug("no recipient for publication event",
			zap.Uint64("publication_id", pubID),
			zap.String("type", string(typ)),
		)
		return
	}
	recipient := *owner

	emailFailed := false
	address, err := d.users.EmailFor(ctx, recipient)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		d.logger.Warn("recipient not found, skipping email",
			zap.Uint64("recipient_id", recipient),
			zap.Uint64("publication_id", pubID),
		)
	case err != nil:
		d.logger.Error("recipient lookup failed",
			zap.Uint64("recipient_id", recipient),
			zap.Error(err),
		)
		emailFailed = true
	default:
		if err := d.sendEmail(ctx, address, title, htmlBody); err != nil {
			d.logger.Error("email send failed",
				zap.Uint64("recipient_id", recipient),
				zap.Uint64("publication_id", pubID),
				zap.Error(err),
			)
			emailFailed = true
		}
	}

	if emailFailed {
		d.createRecord(ctx, recipient, typ.EmailFailedVariant(), pubID,
			"Email delivery failed",
			fmt.Sprintf("The email for %q could not be delivered.", title),
		)
	}

	d.createRecord(ctx, recipient, typ, pubID, title, message)
}

// sendEmail attempts one timeout-bound email delivery
func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if d.email == nil {
		return errors.New("no email sender configured")
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.config.EmailTimeout)
	defer cancel()
	return d.email.Send(sendCtx, to, subject, htmlBody)
}

// createRecord persists an in-app notification; persistence failures are
// logged and swallowed.
func (d *Dispatcher) createRecord(ctx context.Context, recipient uint64, typ notification.Type, pubID uint64, title, message string) {
	n, err := notification.New(recipient, typ, title, message, &pubID)
	if err != nil {
		d.logger.Error("failed to build notification",
			zap.Uint64("recipient_id", recipient),
			zap.Error(err),
		)
		return
	}
	if err := d.notifRepo.Save(ctx, n); err != nil {
		d.logger.Error("failed to persist notification",
			zap.Uint64("recipient_id", recipient),
			zap.Uint64("publication_id", pubID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// Ensure Dispatcher implements shared.EventHandler
var _ shared.EventHandler = (*Dispatcher)(nil)
