package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DispatchResult tracks the outcome of one delivery pass.
type DispatchResult struct {
	Found  int      `json:"found"`
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// Dispatcher delivers due reminders via web push and email. Either sender
// may be nil; reminders of that type then fail with a recorded error.
type Dispatcher struct {
	store  *Store
	push   *PushSender
	email  *EmailSender
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store *Store, push *PushSender, email *EmailSender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, push: push, email: email, logger: logger}
}

// DispatchDue sends every reminder whose fire time has passed and marks it
// sent. A reminder is marked sent after its delivery attempt even when the
// attempt failed, so a broken subscription cannot make the worker re-spam
// the same row forever.
func (d *Dispatcher) DispatchDue(ctx context.Context) (*DispatchResult, error) {
	due, err := d.store.DueUnsent(ctx, time.Now(), dispatchBatchSize)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Found: len(due), Errors: []string{}}
	for _, reminder := range due {
		if err := d.deliver(ctx, reminder); err != nil {
			d.logger.Warn("Reminder delivery failed",
				"reminder_id", reminder.ID, "type", reminder.Type, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("reminder %s: %s", reminder.ID, err))
		} else {
			result.Sent++
		}

		if err := d.store.MarkSent(ctx, reminder.ID); err != nil {
			d.logger.Error("Failed to mark reminder sent",
				"reminder_id", reminder.ID, "error", err)
		}
	}

	if result.Found > 0 {
		d.logger.Info("Dispatch pass complete",
			"found", result.Found, "sent", result.Sent, "failed", result.Failed)
	}
	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, reminder Pending) error {
	switch reminder.Type {
	case TypePush:
		return d.deliverPush(ctx, reminder)
	case TypeEmail:
		return d.deliverEmail(ctx, reminder)
	default:
		return fmt.Errorf("unknown reminder type %q", reminder.Type)
	}
}

// deliverPush fans out to every device subscription the user has. One
// working device counts as delivered.
func (d *Dispatcher) deliverPush(ctx context.Context, reminder Pending) error {
	if !d.push.Configured() {
		return fmt.Errorf("push sender not configured")
	}

	subs, err := d.store.SubscriptionsFor(ctx, reminder.UserID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("no push subscriptions for user %s", reminder.UserID)
	}

	payload := PushPayload{
		Title: "Dose Reminder",
		Body:  "Time for your peptide dose!",
		URL:   "/peptides",
		Tag:   "dose-" + reminder.ID,
	}

	var (
		mu        sync.Mutex
		delivered int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if err := d.push.Send(gctx, sub, payload); err != nil {
				d.logger.Warn("Push send failed",
					"reminder_id", reminder.ID, "error", err)
				return nil // other devices may still succeed
			}
			mu.Lock()
			delivered++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if delivered == 0 {
		return fmt.Errorf("all %d push sends failed", len(subs))
	}
	return nil
}

func (d *Dispatcher) deliverEmail(ctx context.Context, reminder Pending) error {
	if !d.email.Configured() {
		return fmt.Errorf("email sender not configured")
	}

	email, name, err := d.store.UserContact(ctx, reminder.UserID)
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("no email on record for user %s", reminder.UserID)
	}

	protocol, err := d.store.ProtocolByID(ctx, reminder.ProtocolID)
	peptideName := ""
	if err == nil {
		peptideName = protocol.PeptideName
	}

	return d.email.SendDoseReminder(email, name, peptideName)
}

// StartWorker runs a background loop that dispatches due reminders.
// Blocks until ctx is cancelled. Intended to be called with `go`.
func (d *Dispatcher) StartWorker(ctx context.Context, interval time.Duration) {
	d.logger.Info("Reminder dispatch worker started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := d.DispatchDue(ctx); err != nil {
				d.logger.Error("dispatch error", "error", err)
			}
		case <-ctx.Done():
			d.logger.Info("Reminder dispatch worker stopped")
			return
		}
	}
}
