package alerting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aircanary/aircanary/db"
)

// fakeLedger is an in-memory Ledger.
type fakeLedger struct {
	mu     sync.Mutex
	alerts []db.Alert
	nextID int64
	err    error
}

func (f *fakeLedger) RecentMatching(_ context.Context, userID int64, pollutant string, value float64, exact bool) (*db.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var best *db.Alert
	for i := range f.alerts {
		a := f.alerts[i]
		if a.UserID != userID || a.Type != pollutant {
			continue
		}
		if exact && a.Value != value {
			continue
		}
		if best == nil || a.Timestamp.After(best.Timestamp) {
			best = &f.alerts[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (f *fakeLedger) AppendAlerts(_ context.Context, alerts []db.Alert) ([]db.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range alerts {
		f.nextID++
		alerts[i].ID = f.nextID
		f.alerts = append(f.alerts, alerts[i])
	}
	return alerts, nil
}

type fakeSettings struct {
	users []db.UserWithSettings
}

func (f *fakeSettings) NotifiableUsers(_ context.Context) ([]db.UserWithSettings, error) {
	return f.users, nil
}

func userWith(id int64, email string, thresholds map[string]float64) db.UserWithSettings {
	return db.UserWithSettings{
		UserID: id,
		Email:  email,
		Settings: db.UserSettings{
			UserID:        id,
			Notifications: true,
			Format:        "metric",
			Thresholds:    thresholds,
		},
	}
}

func cleanReading(ts time.Time) db.Reading {
	return db.Reading{
		ID:          1,
		Timestamp:   ts,
		Temperature: 21,
		Humidity:    40,
		PM25:        10,
		PM10:        20,
		CO2:         600,
		VOC:         100,
	}
}

func TestEvaluateNoExceedances(t *testing.T) {
	ledger := &fakeLedger{}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000, "pm25": 35, "pm10": 50, "voc": 500}),
	}}
	ev := NewEvaluator(ledger, settings, Config{})

	now := time.Now().UTC()
	result, err := ev.Evaluate(context.Background(), cleanReading(now), now)
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	assert.Empty(t, result.Intents)
	assert.Zero(t, result.Suppressed)
}

func TestEvaluateSingleExceedance(t *testing.T) {
	ledger := &fakeLedger{}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000, "pm25": 35}),
	}}
	ev := NewEvaluator(ledger, settings, Config{})

	now := time.Now().UTC()
	reading := cleanReading(now)
	reading.CO2 = 1200

	result, err := ev.Evaluate(context.Background(), reading, now)
	require.NoError(t, err)

	require.Len(t, result.Alerts, 1)
	alert := result.Alerts[0]
	assert.Equal(t, int64(1), alert.UserID)
	assert.Equal(t, "co2", alert.Type)
	assert.Equal(t, 1200.0, alert.Value)
	assert.Equal(t, 1000.0, alert.Threshold)
	assert.Equal(t, reading.Timestamp, alert.Timestamp)
	assert.False(t, alert.Acknowledged)
	assert.NotZero(t, alert.ID)

	require.Len(t, result.Intents, 1)
	assert.Equal(t, []string{"co2"}, result.Intents[0].Exceeded)
	assert.Equal(t, "a@example.com", result.Intents[0].Email)
}

func TestEvaluateCooldownSuppression(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{alerts: []db.Alert{
		{ID: 1, UserID: 1, Timestamp: t0, Type: "co2", Value: 1200, Threshold: 1000},
	}, nextID: 1}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000}),
	}}
	ev := NewEvaluator(ledger, settings, Config{Cooldown: 5 * time.Minute})

	reading := cleanReading(t0.Add(4 * time.Minute))
	reading.CO2 = 1200

	// 4 minutes in: suppressed
	result, err := ev.Evaluate(context.Background(), reading, t0.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	assert.Empty(t, result.Intents)
	assert.Equal(t, 1, result.Suppressed)

	// 6 minutes in: fresh alert
	reading.Timestamp = t0.Add(6 * time.Minute)
	result, err = ev.Evaluate(context.Background(), reading, t0.Add(6*time.Minute))
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	require.Len(t, result.Intents, 1)
}

func TestEvaluateValueIndependentCooldown(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{alerts: []db.Alert{
		{ID: 1, UserID: 1, Timestamp: t0, Type: "co2", Value: 1200, Threshold: 1000},
	}, nextID: 1}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000}),
	}}

	// Default mode: a different magnitude within the window is still suppressed.
	ev := NewEvaluator(ledger, settings, Config{Cooldown: 5 * time.Minute})
	reading := cleanReading(t0.Add(2 * time.Minute))
	reading.CO2 = 1500

	result, err := ev.Evaluate(context.Background(), reading, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	assert.Equal(t, 1, result.Suppressed)
}

func TestEvaluateExactValueCooldown(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{alerts: []db.Alert{
		{ID: 1, UserID: 1, Timestamp: t0, Type: "co2", Value: 1200, Threshold: 1000},
	}, nextID: 1}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000}),
	}}

	// Legacy mode: a different magnitude within the window re-alerts.
	ev := NewEvaluator(ledger, settings, Config{Cooldown: 5 * time.Minute, MatchExactValue: true})
	reading := cleanReading(t0.Add(2 * time.Minute))
	reading.CO2 = 1500

	result, err := ev.Evaluate(context.Background(), reading, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)

	// Same magnitude within the window stays suppressed.
	reading.CO2 = 1200
	result, err = ev.Evaluate(context.Background(), reading, t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	assert.Equal(t, 1, result.Suppressed)
}

func TestEvaluateBatchesPollutantsPerUser(t *testing.T) {
	ledger := &fakeLedger{}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000, "pm25": 35, "pm10": 50, "voc": 500}),
	}}
	ev := NewEvaluator(ledger, settings, Config{})

	now := time.Now().UTC()
	reading := cleanReading(now)
	reading.CO2 = 1200
	reading.PM25 = 80
	reading.VOC = 900

	result, err := ev.Evaluate(context.Background(), reading, now)
	require.NoError(t, err)
	assert.Len(t, result.Alerts, 3)
	require.Len(t, result.Intents, 1)
	assert.ElementsMatch(t, []string{"co2", "pm25", "voc"}, result.Intents[0].Exceeded)
}

func TestEvaluateScenario(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000, "pm25": 35}),
	}}
	ev := NewEvaluator(ledger, settings, Config{Cooldown: 5 * time.Minute})

	// T0: co2 exceeds, pm25 clean.
	reading := cleanReading(t0)
	reading.CO2 = 1200
	reading.PM25 = 20
	result, err := ev.Evaluate(context.Background(), reading, t0)
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "co2", result.Alerts[0].Type)
	require.Len(t, result.Intents, 1)
	assert.Equal(t, []string{"co2"}, result.Intents[0].Exceeded)

	// T0+2m: identical reading, co2 cooling down.
	reading.Timestamp = t0.Add(2 * time.Minute)
	result, err = ev.Evaluate(context.Background(), reading, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	assert.Empty(t, result.Intents)

	// T0+2m: pm25 now also exceeds; only pm25 alerts.
	reading.PM25 = 50
	result, err = ev.Evaluate(context.Background(), reading, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "pm25", result.Alerts[0].Type)
	assert.Equal(t, 50.0, result.Alerts[0].Value)
	assert.Equal(t, 35.0, result.Alerts[0].Threshold)
	require.Len(t, result.Intents, 1)
	assert.Equal(t, []string{"pm25"}, result.Intents[0].Exceeded)
}

func TestEvaluateNoUsersNoAlerts(t *testing.T) {
	ledger := &fakeLedger{}
	settings := &fakeSettings{}
	ev := NewEvaluator(ledger, settings, Config{})

	now := time.Now().UTC()
	reading := cleanReading(now)
	reading.CO2 = 9999
	reading.PM25 = 9999

	result, err := ev.Evaluate(context.Background(), reading, now)
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	assert.Empty(t, result.Intents)
}

func TestEvaluateSkipsMissingThresholds(t *testing.T) {
	ledger := &fakeLedger{}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"pm25": 35}),
	}}
	ev := NewEvaluator(ledger, settings, Config{})

	now := time.Now().UTC()
	reading := cleanReading(now)
	reading.CO2 = 5000 // no co2 threshold configured

	result, err := ev.Evaluate(context.Background(), reading, now)
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
}

func TestEvaluateConcurrentDedup(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000}),
	}}
	ev := NewEvaluator(ledger, settings, Config{Cooldown: 5 * time.Minute})

	reading := cleanReading(t0)
	reading.CO2 = 1200

	const passes = 16
	results := make([]Result, passes)
	var wg sync.WaitGroup
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := ev.Evaluate(context.Background(), reading, t0)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r.Alerts)
	}
	assert.Equal(t, 1, total, "exactly one pass may create the alert")
	assert.Len(t, ledger.alerts, 1)
}

func TestEvaluatePersistenceErrorPropagates(t *testing.T) {
	ledger := &fakeLedger{err: context.DeadlineExceeded}
	settings := &fakeSettings{users: []db.UserWithSettings{
		userWith(1, "a@example.com", map[string]float64{"co2": 1000}),
	}}
	ev := NewEvaluator(ledger, settings, Config{})

	now := time.Now().UTC()
	reading := cleanReading(now)
	reading.CO2 = 1200

	_, err := ev.Evaluate(context.Background(), reading, now)
	require.Error(t, err)
}
