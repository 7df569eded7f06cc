package domain

import (
	"fmt"
	"time"

	"github.com/aidmatch/platform/internal/shared/types"
)

// NotificationType labels the severity of an in-app notification
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationAction  NotificationType = "action"
	NotificationInfo    NotificationType = "info"
)

// Notification is one in-app message in a session's feed
type Notification struct {
	ID        types.ID         `json:"id"`
	SessionID types.ID         `json:"session_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	IsRead    bool             `json:"is_read"`
}

// NotificationTypeFor maps an application status to its feed severity
func NotificationTypeFor(status Status) NotificationType {
	switch status {
	case StatusApproved:
		return NotificationSuccess
	case StatusActionRequired:
		return NotificationAction
	case StatusWaitlisted:
		return NotificationWarning
	default:
		return NotificationInfo
	}
}

// NewSubmissionNotification announces a successful application submission
func NewSubmissionNotification(app *Application) *Notification {
	return &Notification{
		ID:        types.NewID(),
		SessionID: app.SessionID,
		Type:      NotificationInfo,
		Title:     "Application Submitted",
		Message: fmt.Sprintf("Your %s application was submitted. Confirmation number: %s.",
			app.ProgramName, app.ConfirmationNumber),
		CreatedAt: time.Now().UTC(),
	}
}

// NewStatusNotification announces an application status change
func NewStatusNotification(app *Application) *Notification {
	n := &Notification{
		ID:        types.NewID(),
		SessionID: app.SessionID,
		Type:      NotificationTypeFor(app.Status),
		CreatedAt: time.Now().UTC(),
	}
	switch app.Status {
	case StatusApproved:
		n.Title = "Application Approved"
		n.Message = fmt.Sprintf("Great news! Your %s application (%s) was approved.",
			app.ProgramName, app.ConfirmationNumber)
	case StatusActionRequired:
		n.Title = "Action Required"
		n.Message = fmt.Sprintf("Your %s application (%s) needs additional information. Please respond as soon as possible.",
			app.ProgramName, app.ConfirmationNumber)
	case StatusWaitlisted:
		n.Title = "Application Waitlisted"
		n.Message = fmt.Sprintf("Your %s application (%s) was placed on the waitlist. You keep your place in line.",
			app.ProgramName, app.ConfirmationNumber)
	case StatusDenied:
		n.Title = "Application Decision"
		n.Message = fmt.Sprintf("Your %s application (%s) was not approved. You may appeal or reapply if your circumstances change.",
			app.ProgramName, app.ConfirmationNumber)
	default:
		n.Title = "Application Update"
		n.Message = fmt.Sprintf("Your %s application (%s) is under review again.",
			app.ProgramName, app.ConfirmationNumber)
	}
	return n
}
