package notification

import (
	"context"
	"testing"
	"time"

	"github.com/aidmatch/platform/internal/shared/events"
)

func testConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:       2,
		BufferSize:    16,
		RetryAttempts: 2,
		RetryDelay:    5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcherDeliversToEnabledChannels(t *testing.T) {
	email := NewMockEmailProvider()
	sms := NewMockSMSProvider()
	d := NewDispatcher(email, sms, testConfig())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	d.RegisterContact(Contact{
		SessionID:    "session-1",
		Email:        "applicant@example.com",
		Phone:        "+15555550100",
		EmailEnabled: true,
		SMSEnabled:   false,
	})

	bus := events.NewMemoryBus()
	if err := d.AttachBus(context.Background(), bus); err != nil {
		t.Fatalf("attach: %v", err)
	}

	event := events.NewEvent("application.status_changed", "test", map[string]any{
		"confirmation_number": "SNAP-2026-000042",
		"to":                  "approved",
	}).WithSession("session-1", "agency")
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, func() bool { return len(email.Sent()) == 1 })
	if len(sms.Sent()) != 0 {
		t.Errorf("SMS sent despite being disabled: %d", len(sms.Sent()))
	}

	msg := email.Sent()[0]
	if msg.Recipient != "applicant@example.com" {
		t.Errorf("recipient = %s", msg.Recipient)
	}
	if msg.Subject != "Application status update" {
		t.Errorf("subject = %q", msg.Subject)
	}
}

func TestDispatcherIgnoresSessionsWithoutContact(t *testing.T) {
	email := NewMockEmailProvider()
	d := NewDispatcher(email, nil, testConfig())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	bus := events.NewMemoryBus()
	if err := d.AttachBus(context.Background(), bus); err != nil {
		t.Fatalf("attach: %v", err)
	}
	event := events.NewEvent("application.submitted", "test", map[string]any{
		"confirmation_number": "WIC-2026-000007",
	}).WithSession("anonymous-session", "applicant")
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if n := len(email.Sent()); n != 0 {
		t.Errorf("delivered %d messages for an anonymous session", n)
	}
}

func TestDispatcherMarksFailedAfterRetries(t *testing.T) {
	email := NewMockEmailProvider()
	email.SetFailOnSend(true)
	d := NewDispatcher(email, nil, testConfig())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	msg := &Message{
		SessionID: "session-2",
		Channel:   ChannelEmail,
		Recipient: "applicant@example.com",
		Subject:   "test",
		Body:      "test",
	}
	if err := d.Enqueue(msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, func() bool { return d.Stats().TotalFailed == 1 })
	if msg.Status != StatusFailed {
		t.Errorf("status = %s, want failed", msg.Status)
	}
	if msg.RetryCount != testConfig().RetryAttempts {
		t.Errorf("retry count = %d, want %d", msg.RetryCount, testConfig().RetryAttempts)
	}
}

func TestDispatcherStats(t *testing.T) {
	email := NewMockEmailProvider()
	d := NewDispatcher(email, nil, testConfig())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	for i := 0; i < 3; i++ {
		err := d.Enqueue(&Message{
			Channel:   ChannelEmail,
			Recipient: "applicant@example.com",
			Subject:   "test",
			Body:      "test",
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	waitFor(t, func() bool { return d.Stats().TotalSent == 3 })
	stats := d.Stats()
	if stats.ByChannel[ChannelEmail] != 3 {
		t.Errorf("email count = %d, want 3", stats.ByChannel[ChannelEmail])
	}
	if stats.DeliveryRate != 1.0 {
		t.Errorf("delivery rate = %.2f, want 1.00", stats.DeliveryRate)
	}
}
