package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aidmatch/platform/internal/shared/events"
	"github.com/aidmatch/platform/internal/shared/metrics"
)

// DispatcherConfig holds dispatcher tuning
type DispatcherConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultDispatcherConfig returns default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:       4,
		BufferSize:    1000,
		RetryAttempts: 3,
		RetryDelay:    30 * time.Second,
	}
}

// Dispatcher fans application lifecycle events out to opted-in contacts
// through a worker pool. Delivery is best effort with bounded retries;
// a full buffer drops rather than blocks.
type Dispatcher struct {
	email EmailProvider
	sms   SMSProvider

	mu       sync.RWMutex
	contacts map[string]*Contact
	stats    Stats

	msgCh   chan *Message
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	config DispatcherConfig
}

// NewDispatcher creates a dispatcher. Either provider may be nil; its
// channel is then skipped.
func NewDispatcher(email EmailProvider, sms SMSProvider, config DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		email:    email,
		sms:      sms,
		contacts: make(map[string]*Contact),
		stats:    Stats{ByChannel: make(map[Channel]int64)},
		msgCh:    make(chan *Message, config.BufferSize),
		stopCh:   make(chan struct{}),
		config:   config,
	}
}

// Start launches the worker pool
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already started")
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	return nil
}

// Stop drains the workers
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher not started")
	}
	d.mu.Unlock()

	close(d.stopCh)
	d.wg.Wait()
	return nil
}

// AttachBus subscribes the dispatcher to application lifecycle events
func (d *Dispatcher) AttachBus(ctx context.Context, bus events.EventBus) error {
	return bus.Subscribe(ctx, "application.*", "notification-dispatcher", d.handleEvent)
}

// RegisterContact stores or replaces a session's contact preferences
func (d *Dispatcher) RegisterContact(c Contact) {
	c.UpdatedAt = time.Now().UTC()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[c.SessionID] = &c
}

// ContactFor returns a session's contact, or nil
func (d *Dispatcher) ContactFor(sessionID string) *Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.contacts[sessionID]
}

// Enqueue submits a message for delivery
func (d *Dispatcher) Enqueue(msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.Status = StatusPending

	select {
	case d.msgCh <- msg:
		d.mu.Lock()
		d.stats.TotalQueued++
		d.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("notification buffer full")
	}
}

// Stats returns a snapshot of delivery statistics
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := d.stats
	out.ByChannel = make(map[Channel]int64, len(d.stats.ByChannel))
	for ch, n := range d.stats.ByChannel {
		out.ByChannel[ch] = n
	}
	return out
}

// lifecycleEvent is the slice of event data the dispatcher cares about
type lifecycleEvent struct {
	ProgramName        string `json:"program_name"`
	ConfirmationNumber string `json:"confirmation_number"`
	To                 string `json:"to"`
}

// handleEvent renders an application event into messages for every
// enabled channel of the session's contact.
func (d *Dispatcher) handleEvent(ctx context.Context, event events.Event) error {
	contact := d.ContactFor(event.SessionID)
	if contact == nil {
		return nil
	}

	// Event data arrives as arbitrary JSON; decode just the fields needed.
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	var data lifecycleEvent
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	subject, body := renderMessage(event.Type, data)
	if contact.EmailEnabled && contact.Email != "" {
		d.Enqueue(&Message{
			SessionID: event.SessionID,
			Channel:   ChannelEmail,
			Recipient: contact.Email,
			Subject:   subject,
			Body:      body,
		})
	}
	if contact.SMSEnabled && contact.Phone != "" {
		d.Enqueue(&Message{
			SessionID: event.SessionID,
			Channel:   ChannelSMS,
			Recipient: contact.Phone,
			Subject:   subject,
			Body:      body,
		})
	}
	return nil
}

func renderMessage(eventType string, data lifecycleEvent) (subject, body string) {
	ref := data.ConfirmationNumber
	if ref == "" {
		ref = "your application"
	}

	switch eventType {
	case "application.submitted":
		return "Application received",
			fmt.Sprintf("We received your application (%s). We will let you know as soon as its status changes.", ref)
	case "application.status_changed":
		return "Application status update",
			fmt.Sprintf("The status of %s changed to %s. Sign in to see the details.", ref, data.To)
	default:
		return "Application update",
			fmt.Sprintf("There is an update on %s. Sign in to see the details.", ref)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case msg := <-d.msgCh:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg *Message) {
	var err error
	switch msg.Channel {
	case ChannelEmail:
		if d.email != nil {
			err = d.email.Send(ctx, msg)
		} else {
			err = fmt.Errorf("email provider not configured")
		}
	case ChannelSMS:
		if d.sms != nil {
			err = d.sms.Send(ctx, msg)
		} else {
			err = fmt.Errorf("sms provider not configured")
		}
	default:
		err = fmt.Errorf("unknown channel: %s", msg.Channel)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		msg.ErrorMessage = err.Error()
		msg.RetryCount++

		if msg.RetryCount >= d.config.RetryAttempts {
			msg.Status = StatusFailed
			d.stats.TotalFailed++
			d.updateRate()
			return
		}
		go func() {
			time.Sleep(d.config.RetryDelay)
			select {
			case d.msgCh <- msg:
			default:
			}
		}()
		return
	}

	now := time.Now().UTC()
	msg.SentAt = &now
	msg.Status = StatusSent
	d.stats.TotalSent++
	d.stats.ByChannel[msg.Channel]++
	d.updateRate()
	metrics.RecordNotification(string(msg.Channel))
}

// updateRate recomputes the delivery rate. Callers must hold the mutex.
func (d *Dispatcher) updateRate() {
	done := d.stats.TotalSent + d.stats.TotalFailed
	if done > 0 {
		d.stats.DeliveryRate = float64(d.stats.TotalSent) / float64(done)
	}
}
