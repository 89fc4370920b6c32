// Package notify delivers the invite email side effect. Invite creation
// publishes an event; a background dispatcher picks it up and sends mail.
// Delivery is fire-and-forget: a failed send is logged and the invite stays
// pending and visible for manual follow-up.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// InviteCreated is published after an invite record is persisted.
type InviteCreated struct {
	InviteID string
	Email    string
	SiteID   string
	SiteName string
}

// Publisher accepts invite events from the request path without blocking it.
type Publisher interface {
	Publish(ev InviteCreated)
}

// Mailer is the outbound transport. Failure yields an error to log, nothing
// more; there is no structured error surface back to the caller.
type Mailer interface {
	SendInviteMail(ctx context.Context, ev InviteCreated) error
}

// Dispatcher consumes invite events on a buffered channel and hands them to
// the Mailer, one at a time. Start/Stop bracket the worker goroutine.
type Dispatcher struct {
	mailer  Mailer
	logger  *slog.Logger
	timeout time.Duration

	events chan InviteCreated
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDispatcher creates a dispatcher with the given queue capacity. When the
// queue is full, Publish drops the event with a warning instead of blocking
// invite issuance.
func NewDispatcher(mailer Mailer, logger *slog.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		mailer:  mailer,
		logger:  logger,
		timeout: 30 * time.Second,
		events:  make(chan InviteCreated, queueSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Publish enqueues an event. Never blocks.
func (d *Dispatcher) Publish(ev InviteCreated) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("invite mail queue full, dropping notification",
			"invite_id", ev.InviteID,
			"email", ev.Email,
		)
	}
}

// Start begins the background worker. Non-blocking.
func (d *Dispatcher) Start() {
	go d.run()
	d.logger.Info("invite mail dispatcher started", "queue_size", cap(d.events))
}

// Stop drains nothing: events still queued when Stop is called are dropped.
// Blocks until the worker exits.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
	d.logger.Info("invite mail dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)

	for {
		select {
		case ev := <-d.events:
			d.deliver(ev)
		case <-d.stopCh:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev InviteCreated) {
	// A nil mailer means outbound mail is not configured.
	if d.mailer == nil {
		d.logger.Debug("invite mail skipped, no mailer configured",
			"invite_id", ev.InviteID,
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.mailer.SendInviteMail(ctx, ev); err != nil {
		// Logged only. The invite record is already pending and the admin
		// can follow up manually.
		d.logger.Error("failed to send invite mail",
			"invite_id", ev.InviteID,
			"email", ev.Email,
			"site_id", ev.SiteID,
			"error", err,
		)
		return
	}

	d.logger.Debug("invite mail sent",
		"invite_id", ev.InviteID,
		"email", ev.Email,
	)
}
