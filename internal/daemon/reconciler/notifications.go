package reconciler

import (
	"fmt"
	"strings"

	"github.com/grovetools/arcade/errors"
)

// NotificationKind identifies why a notification was emitted.
type NotificationKind string

const (
	NotifyStart             NotificationKind = "start"
	NotifyPause             NotificationKind = "pause"
	NotifyResume            NotificationKind = "resume"
	NotifyComplete          NotificationKind = "complete"
	NotifyInvalidCredential NotificationKind = "invalid_credential"
	NotifyError             NotificationKind = "error"
	NotifyReminder          NotificationKind = "reminder"
	NotifyInfo              NotificationKind = "info"
)

// Level is the severity a surface should render a notification with.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Action is an optional button attached to a notification.
type Action struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Notification is a one-shot message for the user.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Level   Level            `json:"level"`
	Message string           `json:"message"`
	Action  *Action          `json:"action,omitempty"`
}

// IsSession reports whether n is a session lifecycle message, which the user
// can silence with the session notifications setting.
func (n Notification) IsSession() bool {
	switch n.Kind {
	case NotifyStart, NotifyPause, NotifyResume, NotifyComplete:
		return true
	}
	return false
}

// NoGoal is the goal name the service uses when none was chosen.
const NoGoal = "No Goal"

func startNotification(goal string) Notification {
	msg := "⌨️ Your session has started! "
	if goal == "" || goal == NoGoal {
		msg += "Don't forget to set your goal!"
	} else {
		msg += fmt.Sprintf("Time to get to work on %s", goal)
	}
	return Notification{Kind: NotifyStart, Level: LevelInfo, Message: msg}
}

func completeNotification() Notification {
	return Notification{
		Kind:    NotifyComplete,
		Level:   LevelInfo,
		Message: "🚀 Your session has ended! Remember to show your progress in the thread.",
	}
}

func pauseNotification() Notification {
	return Notification{
		Kind:    NotifyPause,
		Level:   LevelInfo,
		Message: "⏸️ Your session has been paused. Take a break!",
	}
}

func resumeNotification() Notification {
	return Notification{
		Kind:    NotifyResume,
		Level:   LevelInfo,
		Message: "▶️ Your session has been resumed. Keep up the good work!",
	}
}

func invalidCredentialNotification() Notification {
	return Notification{
		Kind:    NotifyInvalidCredential,
		Level:   LevelError,
		Message: `Your API key is invalid! Run "arcade init" to reconfigure.`,
		Action:  &Action{Label: "Reconfigure", Command: "arcade init"},
	}
}

// ReminderNotification is the idle nudge shown when the user is working
// without a session.
func ReminderNotification() Notification {
	return Notification{
		Kind:    NotifyReminder,
		Level:   LevelInfo,
		Message: "You seem to be working on something... Don't forget to start a session!",
		Action:  &Action{Label: "Don't Show Again", Command: "arcade notifications reminders off"},
	}
}

// RemindersDisabledNotification confirms the reminder opt-out.
func RemindersDisabledNotification() Notification {
	return Notification{
		Kind:    NotifyInfo,
		Level:   LevelInfo,
		Message: `Start reminder notifications have been disabled. Run "arcade notifications reminders on" to re-enable them.`,
	}
}

// errorMessage is the sticky error text for a failed fetch. It does not
// include the retry delay so repeated failures of the same kind compare equal.
func errorMessage(err error) string {
	if errors.Is(err, errors.ErrCodeProtocol) {
		return "Session service sent an unexpected response: " + describe(err)
	}
	return "Failed to fetch session info: " + describe(err)
}

func describe(err error) string {
	if ae := errors.As(err); ae != nil {
		if ae.Cause != nil {
			return fmt.Sprintf("%s: %v", ae.Message, ae.Cause)
		}
		return ae.Message
	}
	return strings.TrimSpace(err.Error())
}
