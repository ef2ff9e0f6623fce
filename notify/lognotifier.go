package notify

import (
	"context"

	"github.com/aircanary/aircanary/logger"
)

// LogNotifier writes notifications to the log instead of delivering them.
// Used when SMTP is not configured.
type LogNotifier struct{}

// Notify logs the intent and reports success.
func (LogNotifier) Notify(_ context.Context, intent *Intent) error {
	nlog := logger.WithComponent("notifier")
	nlog.Info().
		Str("intent_id", intent.ID).
		Int64("user_id", intent.UserID).
		Str("email", intent.Email).
		Strs("pollutants", intent.Exceeded).
		Msg("mail disabled, logging notification only")
	return nil
}
