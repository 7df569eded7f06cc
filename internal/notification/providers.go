package notification

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EmailProvider sends email messages
type EmailProvider interface {
	Send(ctx context.Context, msg *Message) error
}

// SMSProvider sends SMS messages
type SMSProvider interface {
	Send(ctx context.Context, msg *Message) error
}

// MockEmailProvider captures sent email for tests and local runs
type MockEmailProvider struct {
	mu         sync.RWMutex
	sent       []*Message
	failOnSend bool
	sendDelay  time.Duration
}

// NewMockEmailProvider creates a new mock email provider
func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

// Send records the message (mock implementation)
func (p *MockEmailProvider) Send(ctx context.Context, msg *Message) error {
	if p.sendDelay > 0 {
		time.Sleep(p.sendDelay)
	}
	if p.failOnSend {
		return fmt.Errorf("mock send failure")
	}
	if msg.Recipient == "" {
		return fmt.Errorf("no email address provided")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	fmt.Printf("[MOCK EMAIL] To: %s, Subject: %s\n", msg.Recipient, msg.Subject)
	return nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockEmailProvider) SetFailOnSend(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failOnSend = fail
}

// SetSendDelay sets artificial delay for Send
func (p *MockEmailProvider) SetSendDelay(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendDelay = delay
}

// Sent returns the captured messages
func (p *MockEmailProvider) Sent() []*Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Message, len(p.sent))
	copy(out, p.sent)
	return out
}

// MockSMSProvider captures sent SMS for tests and local runs
type MockSMSProvider struct {
	mu         sync.RWMutex
	sent       []*Message
	failOnSend bool
}

// NewMockSMSProvider creates a new mock SMS provider
func NewMockSMSProvider() *MockSMSProvider {
	return &MockSMSProvider{}
}

// Send records the message (mock implementation)
func (p *MockSMSProvider) Send(ctx context.Context, msg *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failOnSend {
		return fmt.Errorf("mock send failure")
	}
	if msg.Recipient == "" {
		return fmt.Errorf("no phone number provided")
	}

	p.sent = append(p.sent, msg)
	fmt.Printf("[MOCK SMS] To: %s, Body: %s\n", msg.Recipient, truncate(msg.Body, 50))
	return nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockSMSProvider) SetFailOnSend(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failOnSend = fail
}

// Sent returns the captured messages
func (p *MockSMSProvider) Sent() []*Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Message, len(p.sent))
	copy(out, p.sent)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
