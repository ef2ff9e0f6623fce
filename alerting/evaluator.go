package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aircanary/aircanary/db"
	"github.com/aircanary/aircanary/logger"
	"github.com/aircanary/aircanary/metrics"
	"github.com/aircanary/aircanary/notify"
)

// Ledger is the alert persistence surface the evaluator depends on.
// Implemented by *db.Store.
type Ledger interface {
	// RecentMatching returns the most recent alert for (user, pollutant),
	// or nil when none exists. When exact is true the observed value is
	// part of the match key.
	RecentMatching(ctx context.Context, userID int64, pollutant string, value float64, exact bool) (*db.Alert, error)
	// AppendAlerts commits all alerts for one evaluation pass in a single
	// all-or-nothing transaction and returns them with ids assigned.
	AppendAlerts(ctx context.Context, alerts []db.Alert) ([]db.Alert, error)
}

// SettingsSource supplies the users eligible for alerting. Implemented by
// *db.Store. Thresholds are read fresh on every evaluation; the evaluator
// never caches them.
type SettingsSource interface {
	NotifiableUsers(ctx context.Context) ([]db.UserWithSettings, error)
}

// Config holds evaluator tuning.
type Config struct {
	// Cooldown is the window during which a matching exceedance is
	// suppressed from re-alerting.
	Cooldown time.Duration
	// MatchExactValue keys the cooldown match on the observed value as
	// well as the pollutant, reproducing the legacy behavior. Off by
	// default: any alert for the pair inside the window suppresses.
	MatchExactValue bool
}

// Evaluator decides, per user and per pollutant, whether an incoming reading
// newly triggers an alert. It performs no network I/O of its own; alert rows
// go through the Ledger and notification side effects are returned as intents
// for the dispatcher.
type Evaluator struct {
	ledger   Ledger
	settings SettingsSource
	cfg      Config
	locks    *keyedLocks
}

// NewEvaluator constructs an evaluator. A zero Cooldown defaults to 5 minutes.
func NewEvaluator(ledger Ledger, settings SettingsSource, cfg Config) *Evaluator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Evaluator{
		ledger:   ledger,
		settings: settings,
		cfg:      cfg,
		locks:    newKeyedLocks(),
	}
}

// Result is the outcome of one evaluation pass.
type Result struct {
	Alerts     []db.Alert
	Intents    []*notify.Intent
	Suppressed int
}

// candidate is one exceedance detected before the cooldown check.
type candidate struct {
	user      db.UserWithSettings
	pollutant Pollutant
	value     float64
	threshold float64
}

// Evaluate runs one pass over the reading for every notifiable user. The
// reading must already be durably stored. now is the wall-clock instant of
// ingestion, used for the cooldown comparison; it is not necessarily the
// reading's own timestamp.
//
// The cooldown check and the insert are atomic per (user, pollutant): the
// candidate's keyed lock is held from the RecentMatching lookup until
// AppendAlerts returns, so two near-simultaneous exceedances cannot both pass
// the check. Locks are acquired in a fixed (user, pollutant) order, which
// rules out lock-order inversion between concurrent passes.
func (e *Evaluator) Evaluate(ctx context.Context, reading db.Reading, now time.Time) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.EvaluateDuration.Observe(time.Since(start).Seconds())
	}()

	log := logger.WithComponent("evaluator")

	users, err := e.settings.NotifiableUsers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load notifiable users: %w", err)
	}

	candidates := e.collectCandidates(users, reading)
	if len(candidates) == 0 {
		return Result{}, nil
	}

	held := make([]*sync.Mutex, 0, len(candidates))
	for _, c := range candidates {
		l := e.locks.get(lockKey{userID: c.user.UserID, ordinal: c.pollutant.ordinal()})
		l.Lock()
		held = append(held, l)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()

	var result Result
	fresh := make([]candidate, 0, len(candidates))
	pending := make([]db.Alert, 0, len(candidates))

	for _, c := range candidates {
		prior, err := e.ledger.RecentMatching(ctx, c.user.UserID, c.pollutant.String(), c.value, e.cfg.MatchExactValue)
		if err != nil {
			return Result{}, fmt.Errorf("recent alert lookup: %w", err)
		}
		if prior != nil && now.Sub(prior.Timestamp) < e.cfg.Cooldown {
			log.Debug().
				Int64("user_id", c.user.UserID).
				Str("pollutant", c.pollutant.String()).
				Float64("value", c.value).
				Time("prior", prior.Timestamp).
				Msg("exceedance suppressed by cooldown")
			metrics.AlertsSuppressedTotal.WithLabelValues(c.pollutant.String()).Inc()
			result.Suppressed++
			continue
		}

		fresh = append(fresh, c)
		pending = append(pending, db.Alert{
			UserID:    c.user.UserID,
			Timestamp: reading.Timestamp,
			Type:      c.pollutant.String(),
			Value:     c.value,
			Threshold: c.threshold,
		})
	}

	if len(pending) == 0 {
		return result, nil
	}

	inserted, err := e.ledger.AppendAlerts(ctx, pending)
	if err != nil {
		return Result{}, fmt.Errorf("commit alerts: %w", err)
	}
	result.Alerts = inserted

	for _, c := range fresh {
		metrics.AlertsTriggeredTotal.WithLabelValues(c.pollutant.String()).Inc()
	}
	result.Intents = buildIntents(fresh, reading)

	log.Info().
		Int("alerts", len(result.Alerts)).
		Int("suppressed", result.Suppressed).
		Int("intents", len(result.Intents)).
		Msg("evaluation pass complete")

	return result, nil
}

// collectCandidates computes raw exceedances: v > t per user per pollutant,
// skipping pollutants the user has no threshold for. Users arrive ordered by
// id and pollutants are walked in their fixed order, so the candidate list is
// already in lock-acquisition order.
func (e *Evaluator) collectCandidates(users []db.UserWithSettings, reading db.Reading) []candidate {
	candidates := make([]candidate, 0)
	for _, u := range users {
		for _, p := range Pollutants {
			t, ok := u.Settings.Thresholds[p.String()]
			if !ok {
				continue
			}
			v := p.Value(reading)
			if v <= t {
				continue
			}
			candidates = append(candidates, candidate{
				user:      u,
				pollutant: p,
				value:     v,
				threshold: t,
			})
		}
	}
	return candidates
}

// buildIntents groups fresh exceedances per user: one intent per user per
// reading, covering all of that user's exceeded pollutants.
func buildIntents(fresh []candidate, reading db.Reading) []*notify.Intent {
	byUser := make(map[int64]*notify.Intent)
	intents := make([]*notify.Intent, 0)
	for _, c := range fresh {
		intent, ok := byUser[c.user.UserID]
		if !ok {
			intent = notify.NewIntent(c.user, reading, nil)
			byUser[c.user.UserID] = intent
			intents = append(intents, intent)
		}
		intent.Exceeded = append(intent.Exceeded, c.pollutant.String())
	}
	return intents
}
