package rental

import (
	"fmt"
	"time"

	"liyu1981.xyz/battery-rental-service/pkg/charge"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

type SessionState int

const (
	SessionInactive SessionState = iota
	SessionDischarging
	SessionPaused
)

func (s SessionState) String() string {
	switch s {
	case SessionDischarging:
		return "discharging"
	case SessionPaused:
		return "paused"
	}
	return "inactive"
}

func StateOf(u *models.BatteryUsage) SessionState {
	switch {
	case u == nil || !u.IsActive:
		return SessionInactive
	case u.IsDischarging:
		return SessionDischarging
	}
	return SessionPaused
}

type SessionEvent string

const (
	SessionEventStart SessionEvent = "start"
	SessionEventStop  SessionEvent = "stop"
)

func ParseSessionEvent(action string) (SessionEvent, error) {
	switch e := SessionEvent(action); e {
	case SessionEventStart, SessionEventStop:
		return e, nil
	}
	return "", invalidInput("unknown discharge action %q", action)
}

var sessionTransitions = map[SessionState]map[SessionEvent]SessionState{
	SessionDischarging: {SessionEventStop: SessionPaused},
	SessionPaused:      {SessionEventStart: SessionDischarging},
}

// NewSession is the state of a session opened by order activation.
func NewSession(userID string, batteryID, orderID uint, now time.Time) models.BatteryUsage {
	return models.BatteryUsage{
		UserID:         userID,
		BatteryID:      batteryID,
		OrderID:        orderID,
		StartTime:      now,
		CurrentCharge:  charge.MaxCharge,
		BaselineCharge: charge.MaxCharge,
		IsDischarging:  true,
		IsActive:       true,
	}
}

// ApplySessionEvent returns the session after event. The input is never modified,
// and an event missing from the transition table returns a StateError.
func ApplySessionEvent(u models.BatteryUsage, event SessionEvent, now time.Time) (models.BatteryUsage, error) {
	from := StateOf(&u)
	if _, ok := sessionTransitions[from][event]; !ok {
		return u, &StateError{Event: string(event), State: from}
	}

	switch event {
	case SessionEventStop:
		u.IsDischarging = false
	case SessionEventStart:
		u.StartTime = now
		u.BaselineCharge = u.CurrentCharge
		u.IsDischarging = true
	}
	return u, nil
}

// ReconcileSession recomputes the charge of a discharging session at now and reports
// whether it ran out. Paused and closed sessions come back unchanged.
func ReconcileSession(u models.BatteryUsage, powerWatts float64, now time.Time) (models.BatteryUsage, bool) {
	if StateOf(&u) != SessionDischarging {
		return u, false
	}

	elapsed := charge.ElapsedHours(u.StartTime, now)
	computed := charge.Compute(u.BaselineCharge, elapsed, powerWatts)
	u.CurrentCharge = min(u.CurrentCharge, computed)
	u.TotalUsageHours = common.Round2(elapsed)

	if u.CurrentCharge > 0 {
		return u, false
	}

	end := now
	u.CurrentCharge = 0
	u.EndTime = &end
	u.IsActive = false
	u.IsDischarging = false
	return u, true
}

// CloseSession ends a session for an explicit order completion.
func CloseSession(u models.BatteryUsage, now time.Time) models.BatteryUsage {
	if u.EndTime == nil {
		end := now
		u.EndTime = &end
	}
	u.IsActive = false
	u.IsDischarging = false
	u.TotalUsageHours = common.Round2(charge.ElapsedHours(u.StartTime, now))
	return u
}

// OverrideCharge sets the charge by hand and re-anchors the discharge segment on it,
// so the value survives the next reconcile.
func OverrideCharge(u models.BatteryUsage, value int, now time.Time) (models.BatteryUsage, error) {
	if value < charge.MinCharge || value > charge.MaxCharge {
		return u, fmt.Errorf("%w: charge %d not in [%d, %d]", ErrOutOfRange, value, charge.MinCharge, charge.MaxCharge)
	}
	if StateOf(&u) == SessionInactive {
		return u, &StateError{Event: "set charge", State: SessionInactive}
	}

	u.CurrentCharge = value
	u.BaselineCharge = value
	u.StartTime = now
	return u, nil
}

func sessionChanged(before, after models.BatteryUsage) bool {
	endChanged := (before.EndTime == nil) != (after.EndTime == nil) ||
		(before.EndTime != nil && after.EndTime != nil && !before.EndTime.Equal(*after.EndTime))

	return endChanged ||
		!before.StartTime.Equal(after.StartTime) ||
		before.CurrentCharge != after.CurrentCharge ||
		before.BaselineCharge != after.BaselineCharge ||
		before.IsDischarging != after.IsDischarging ||
		before.IsActive != after.IsActive ||
		before.TotalUsageHours != after.TotalUsageHours
}
