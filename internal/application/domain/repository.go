package domain

import (
	"context"

	"github.com/aidmatch/platform/internal/shared/types"
)

// Repository persists applications and notifications. The tracker is the
// in-memory source of truth; persistence is best effort and a write
// failure never rolls back a completed state change.
type Repository interface {
	SaveApplication(ctx context.Context, app *Application) error
	UpdateApplication(ctx context.Context, app *Application) error
	ListApplications(ctx context.Context, sessionID types.ID) ([]*Application, error)

	SaveNotification(ctx context.Context, n *Notification) error
	MarkNotificationsRead(ctx context.Context, sessionID types.ID) error
	ListNotifications(ctx context.Context, sessionID types.ID) ([]*Notification, error)
}
