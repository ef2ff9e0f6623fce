package db

import "time"

// Reading represents one stored sensor sample. Immutable once inserted.
type Reading struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	PM25        float64   `json:"pm25"`
	PM10        float64   `json:"pm10"`
	CO2         float64   `json:"co2"`
	VOC         float64   `json:"voc"`
}

// ReadingSummary is the projection returned by the summary endpoint.
type ReadingSummary struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	PM25        float64   `json:"pm25"`
	PM10        float64   `json:"pm10"`
}

// User represents a registered account.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSettings holds one user's threshold configuration.
type UserSettings struct {
	ID            int64              `json:"-"`
	UserID        int64              `json:"-"`
	Notifications bool               `json:"notifications"`
	Format        string             `json:"format"`
	Thresholds    map[string]float64 `json:"thresholds"`
}

// DefaultSettings returns the settings created lazily for a user that has none.
func DefaultSettings(userID int64) UserSettings {
	return UserSettings{
		UserID:        userID,
		Notifications: true,
		Format:        "metric",
		Thresholds: map[string]float64{
			"co2":  1000,
			"pm25": 35,
			"pm10": 50,
			"voc":  500,
		},
	}
}

// UserWithSettings pairs a user's identity with their threshold settings.
// Returned by NotifiableUsers for the evaluation pass.
type UserWithSettings struct {
	UserID   int64
	Email    string
	Settings UserSettings
}

// Alert represents one persisted threshold exceedance event.
type Alert struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	Timestamp    time.Time `json:"timestamp"`
	Type         string    `json:"type"`
	Value        float64   `json:"value"`
	Threshold    float64   `json:"threshold"`
	Acknowledged bool      `json:"acknowledged"`
}

// Classification records the predicted air-quality category for one reading.
type Classification struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	PM25      float64   `json:"pm25"`
	PM10      float64   `json:"pm10"`
	CO2       float64   `json:"co2"`
	VOC       float64   `json:"voc"`
	Category  string    `json:"prediction"`
}

// MetricStats holds aggregate statistics for one metric over a time range.
type MetricStats struct {
	Metric string   `json:"metric"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Avg    *float64 `json:"avg"`
	Stddev *float64 `json:"stddev"`
}
