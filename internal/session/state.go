package session

import "time"

const (
	// SessionTimeout is the inactivity budget: no detected activity for
	// this long forces a logout.
	SessionTimeout = 900 * time.Second

	// WarningLead is how long before the hard expiry the warning fires.
	WarningLead = 60 * time.Second

	// WarningCountdownStart is the value the warning countdown starts
	// from. It is deliberately not WarningLead in seconds: the warning
	// fires 60 seconds before expiry but displays a 15-second countdown,
	// matching the shipped behavior.
	WarningCountdownStart = 15

	countdownTick = time.Second
)

type Phase int

const (
	PhaseLoggedOut Phase = iota
	PhaseActive
	PhaseWarning
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseWarning:
		return "warning"
	default:
		return "logged_out"
	}
}

// State is the session machine state. SecondsRemaining is meaningful
// only while the warning is visible.
type State struct {
	Phase            Phase
	SecondsRemaining int
}

// WarningVisible reports whether the expiry warning is shown.
func (s State) WarningVisible() bool {
	return s.Phase == PhaseWarning
}

type Event int

const (
	EventLogin Event = iota
	EventActivity
	EventExtend
	EventWarningFired
	EventCountdownTick
	EventExpiryFired
	EventLogout
)

type Effect int

const (
	// EffectCancelTimers cancels any pending warning, expiry and
	// countdown timers.
	EffectCancelTimers Effect = iota
	// EffectScheduleTimers schedules a fresh warning timer at
	// SessionTimeout-WarningLead and expiry timer at SessionTimeout.
	EffectScheduleTimers
	// EffectScheduleCountdown schedules the next 1-second countdown tick.
	EffectScheduleCountdown
	// EffectStopCountdown cancels the countdown tick; the warning stays
	// visible and the expiry timer keeps running.
	EffectStopCountdown
	EffectNotifyWarning
	EffectNotifyExtended
	EffectNotifyExpired
	// EffectClearIdentity removes the persisted token/identity record.
	EffectClearIdentity
	EffectNavigateLogin
)

// Transition is the pure decision function of the expiry machine: given
// the current state and an event it returns the next state and the side
// effects the owner must perform. It touches no timers or storage itself.
func Transition(s State, e Event) (State, []Effect) {
	switch e {
	case EventLogin:
		if s.Phase != PhaseLoggedOut {
			return s, nil
		}
		return State{Phase: PhaseActive}, []Effect{EffectScheduleTimers}

	case EventActivity, EventExtend:
		if s.Phase == PhaseLoggedOut {
			return s, nil
		}
		effects := []Effect{EffectCancelTimers, EffectScheduleTimers}
		if e == EventExtend {
			effects = append(effects, EffectNotifyExtended)
		}
		return State{Phase: PhaseActive}, effects

	case EventWarningFired:
		if s.Phase != PhaseActive {
			return s, nil
		}
		return State{Phase: PhaseWarning, SecondsRemaining: WarningCountdownStart},
			[]Effect{EffectNotifyWarning, EffectScheduleCountdown}

	case EventCountdownTick:
		if s.Phase != PhaseWarning {
			return s, nil
		}
		remaining := s.SecondsRemaining - 1
		if remaining <= 0 {
			// The countdown freezes at zero; logout still waits for the
			// separately scheduled expiry timer.
			return State{Phase: PhaseWarning, SecondsRemaining: 0}, []Effect{EffectStopCountdown}
		}
		return State{Phase: PhaseWarning, SecondsRemaining: remaining}, []Effect{EffectScheduleCountdown}

	case EventExpiryFired:
		if s.Phase == PhaseLoggedOut {
			return s, nil
		}
		return State{Phase: PhaseLoggedOut}, []Effect{
			EffectCancelTimers,
			EffectClearIdentity,
			EffectNotifyExpired,
			EffectNavigateLogin,
		}

	case EventLogout:
		if s.Phase == PhaseLoggedOut {
			return s, nil
		}
		// Manual logout: no expiry notification, no navigation.
		return State{Phase: PhaseLoggedOut}, []Effect{EffectCancelTimers, EffectClearIdentity}
	}

	return s, nil
}
