package notify

import (
	"github.com/google/uuid"

	"github.com/aircanary/aircanary/db"
)

// Intent instructs the dispatcher to notify one user about the batch of
// pollutants exceeded by one reading. It is ephemeral: consumed once, then
// discarded regardless of the dispatch outcome.
type Intent struct {
	ID         string
	UserID     int64
	Email      string
	Reading    db.Reading
	Thresholds map[string]float64
	Exceeded   []string
}

// NewIntent builds an intent covering every exceeded pollutant for one user.
func NewIntent(user db.UserWithSettings, reading db.Reading, exceeded []string) *Intent {
	return &Intent{
		ID:         uuid.New().String(),
		UserID:     user.UserID,
		Email:      user.Email,
		Reading:    reading,
		Thresholds: user.Settings.Thresholds,
		Exceeded:   exceeded,
	}
}
