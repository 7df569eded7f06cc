package domain

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/events"
	"github.com/aidmatch/platform/internal/shared/metrics"
	"github.com/aidmatch/platform/internal/shared/types"
)

// SubmitRequest is the input for submitting one program application.
// The caller maps an eligibility verdict onto it; Eligible must reflect
// that verdict's outcome.
type SubmitRequest struct {
	ProgramID      string
	ProgramName    string
	Category       string
	Prefix         string
	ProcessingDays int
	Eligible       bool
	BenefitAmount  *float64
	BenefitPeriod  string
}

// TransitionDetails carries optional agency-decision context. NextSteps
// replaces the application's checklist; a benefit amount records the
// awarded figure when it differs from the estimate.
type TransitionDetails struct {
	NextSteps     []string
	BenefitAmount *float64
	BenefitPeriod string
}

// sessionState holds one session's applications and notification feed
type sessionState struct {
	applications  []*Application
	byProgram     map[string]*Application
	notifications []*Notification
}

// Tracker owns the application lifecycle for every session. A single
// mutex serializes all mutations, so concurrent submissions of the same
// program resolve to exactly one application and one conflict.
type Tracker struct {
	mu       sync.Mutex
	sessions map[types.ID]*sessionState

	repo Repository      // optional, best-effort persistence
	bus  events.EventBus // optional
}

// NewTracker creates a tracker. Both repo and bus may be nil when the
// service runs without a database or event store.
func NewTracker(repo Repository, bus events.EventBus) *Tracker {
	return &Tracker{
		sessions: make(map[types.ID]*sessionState),
		repo:     repo,
		bus:      bus,
	}
}

// Submit creates an application from an eligible verdict. Ineligible
// verdicts are rejected, and a second submission for the same program in
// the same session returns a conflict carrying the existing confirmation
// number.
func (t *Tracker) Submit(ctx context.Context, sessionID types.ID, req SubmitRequest) (*Application, error) {
	if !req.Eligible {
		return nil, errors.BadRequest(fmt.Sprintf("cannot apply to %s: the eligibility determination was not favorable", req.ProgramName))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.session(sessionID)
	if existing, ok := state.byProgram[req.ProgramID]; ok {
		appErr := errors.Conflict(fmt.Sprintf("an application for %s already exists", req.ProgramName))
		appErr.Details = map[string]string{"confirmation_number": existing.ConfirmationNumber}
		return nil, appErr
	}

	app := NewApplication(sessionID, req.ProgramID, req.ProgramName, req.Category, req.Prefix, req.ProcessingDays)
	app.BenefitAmount = req.BenefitAmount
	app.BenefitPeriod = req.BenefitPeriod

	state.applications = append(state.applications, app)
	state.byProgram[app.ProgramID] = app

	notif := NewSubmissionNotification(app)
	state.notifications = append([]*Notification{notif}, state.notifications...)

	t.persistApplication(ctx, app, false)
	t.persistNotification(ctx, notif)
	t.publish(events.NewEvent("application.submitted", "application-tracker", app).
		WithSession(sessionID.String(), "applicant").WithSubject(app.ID))

	metrics.RecordApplicationSubmitted(app.ProgramID)
	metrics.RecordNotification(string(notif.Type))

	return app, nil
}

// Transition moves an application to a new status and appends the
// matching notification to the session feed. An invalid edge mutates
// nothing and emits nothing.
func (t *Tracker) Transition(ctx context.Context, sessionID, applicationID types.ID, to Status, details *TransitionDetails) (*Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.session(sessionID)
	app := state.find(applicationID)
	if app == nil {
		return nil, errors.NotFound("application", applicationID.String())
	}

	from := app.Status
	if err := app.Transition(to); err != nil {
		return nil, err
	}
	if details != nil {
		if len(details.NextSteps) > 0 {
			app.NextSteps = details.NextSteps
		}
		if details.BenefitAmount != nil {
			app.BenefitAmount = details.BenefitAmount
			if details.BenefitPeriod != "" {
				app.BenefitPeriod = details.BenefitPeriod
			}
		}
	}

	notif := NewStatusNotification(app)
	state.notifications = append([]*Notification{notif}, state.notifications...)

	t.persistApplication(ctx, app, true)
	t.persistNotification(ctx, notif)
	t.publish(events.NewEvent("application.status_changed", "application-tracker", map[string]any{
		"application_id":      app.ID,
		"program_id":          app.ProgramID,
		"confirmation_number": app.ConfirmationNumber,
		"from":                from,
		"to":                  to,
	}).WithSession(sessionID.String(), "agency").WithSubject(app.ID))

	metrics.RecordStatusChange(string(from), string(to))
	metrics.RecordNotification(string(notif.Type))

	return app, nil
}

// Applications returns the session's applications, newest first
func (t *Tracker) Applications(sessionID types.ID) []*Application {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.session(sessionID)
	out := make([]*Application, len(state.applications))
	for i, app := range state.applications {
		out[len(state.applications)-1-i] = app
	}
	return out
}

// Get returns one application by ID
func (t *Tracker) Get(sessionID, applicationID types.ID) (*Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if app := t.session(sessionID).find(applicationID); app != nil {
		return app, nil
	}
	return nil, errors.NotFound("application", applicationID.String())
}

// Notifications returns the session feed, newest first
func (t *Tracker) Notifications(sessionID types.ID) []*Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.session(sessionID)
	out := make([]*Notification, len(state.notifications))
	copy(out, state.notifications)
	return out
}

// UnreadCount returns the number of unread notifications in the feed
func (t *Tracker) UnreadCount(sessionID types.ID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, notif := range t.session(sessionID).notifications {
		if !notif.IsRead {
			n++
		}
	}
	return n
}

// MarkAllRead marks every notification in the session read and returns
// how many changed. Idempotent: a second call changes nothing.
func (t *Tracker) MarkAllRead(ctx context.Context, sessionID types.ID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := 0
	for _, notif := range t.session(sessionID).notifications {
		if !notif.IsRead {
			notif.IsRead = true
			changed++
		}
	}
	if changed > 0 && t.repo != nil {
		if err := t.repo.MarkNotificationsRead(ctx, sessionID); err != nil {
			log.Printf("application tracker: mark notifications read: %v", err)
		}
	}
	return changed
}

// Hydrate loads a session's persisted applications and notifications into
// memory. Called once per session on first access after a restart; a load
// failure leaves the session empty rather than failing the request.
func (t *Tracker) Hydrate(ctx context.Context, sessionID types.ID) {
	if t.repo == nil {
		return
	}

	apps, err := t.repo.ListApplications(ctx, sessionID)
	if err != nil {
		log.Printf("application tracker: hydrate applications: %v", err)
		return
	}
	notifs, err := t.repo.ListNotifications(ctx, sessionID)
	if err != nil {
		log.Printf("application tracker: hydrate notifications: %v", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sessions[sessionID]; ok {
		return
	}
	state := &sessionState{byProgram: make(map[string]*Application)}
	for _, app := range apps {
		state.applications = append(state.applications, app)
		state.byProgram[app.ProgramID] = app
	}
	state.notifications = notifs
	t.sessions[sessionID] = state
}

// session returns the state for a session, creating it if needed.
// Callers must hold the mutex.
func (t *Tracker) session(sessionID types.ID) *sessionState {
	state, ok := t.sessions[sessionID]
	if !ok {
		state = &sessionState{byProgram: make(map[string]*Application)}
		t.sessions[sessionID] = state
	}
	return state
}

func (s *sessionState) find(applicationID types.ID) *Application {
	for _, app := range s.applications {
		if app.ID == applicationID {
			return app
		}
	}
	return nil
}

func (t *Tracker) persistApplication(ctx context.Context, app *Application, update bool) {
	if t.repo == nil {
		return
	}
	var err error
	if update {
		err = t.repo.UpdateApplication(ctx, app)
	} else {
		err = t.repo.SaveApplication(ctx, app)
	}
	if err != nil {
		log.Printf("application tracker: persist %s: %v", app.ConfirmationNumber, err)
	}
}

func (t *Tracker) persistNotification(ctx context.Context, n *Notification) {
	if t.repo == nil {
		return
	}
	if err := t.repo.SaveNotification(ctx, n); err != nil {
		log.Printf("application tracker: persist notification: %v", err)
	}
}

func (t *Tracker) publish(event events.Event) {
	if t.bus == nil {
		return
	}
	if err := t.bus.Publish(context.Background(), event); err != nil {
		log.Printf("application tracker: publish %s: %v", event.Type, err)
	}
}
