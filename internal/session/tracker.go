package session

import (
	"context"
	"log"
	"sync"
	"time"
)

// Notifier surfaces transient notifications to the user.
type Notifier interface {
	SessionWarning(userID string, secondsRemaining int)
	SessionExpired(userID string)
	SessionExtended(userID string)
}

// Navigator is the redirect-to-login primitive invoked on forced expiry.
type Navigator interface {
	NavigateToLogin(userID string)
}

// IdentityStore removes the persisted token/identity record when a
// session ends.
type IdentityStore interface {
	Clear(ctx context.Context, token string) error
}

// timers owns the pending timer handles for one session. Every
// transition cancels before scheduling, so timers never stack.
type timers struct {
	warning   Timer
	expiry    Timer
	countdown Timer
}

func (t *timers) cancelAll() {
	if t.warning != nil {
		t.warning.Stop()
		t.warning = nil
	}
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
	t.stopCountdown()
}

func (t *timers) stopCountdown() {
	if t.countdown != nil {
		t.countdown.Stop()
		t.countdown = nil
	}
}

type machine struct {
	token  string
	userID string
	state  State
	timers timers
}

// Tracker runs one expiry state machine per live session token. All
// transitions go through the pure Transition function; the Tracker only
// owns timers and performs the returned effects.
type Tracker struct {
	mu         sync.Mutex
	clock      Clock
	notifier   Notifier
	navigator  Navigator
	identities IdentityStore
	sessions   map[string]*machine
}

func NewTracker(clock Clock, notifier Notifier, navigator Navigator, identities IdentityStore) *Tracker {
	return &Tracker{
		clock:      clock,
		notifier:   notifier,
		navigator:  navigator,
		identities: identities,
		sessions:   make(map[string]*machine),
	}
}

// StartSession begins tracking inactivity for a freshly authenticated
// session.
func (t *Tracker) StartSession(token, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[token]; exists {
		return
	}
	m := &machine{token: token, userID: userID, state: State{Phase: PhaseLoggedOut}}
	t.sessions[token] = m
	t.dispatch(m, EventLogin)
}

// OnActivity resets the inactivity timers for the session. Called on
// every qualifying interaction while the user is authenticated.
func (t *Tracker) OnActivity(token string) {
	t.event(token, EventActivity)
}

// ExtendSession is the user-invoked reset from the warning UI. It hides
// the warning, restarts both timers and confirms with a notification.
func (t *Tracker) ExtendSession(token string) {
	t.event(token, EventExtend)
}

// Logout ends the session manually: timers cancelled, identity cleared,
// no expiry notification and no navigation.
func (t *Tracker) Logout(token string) {
	t.event(token, EventLogout)
}

// HandleUnauthorized runs the manual-logout path plus an expiry
// notification; it backs the 401 response interceptor.
func (t *Tracker) HandleUnauthorized(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.sessions[token]
	if !ok {
		return
	}
	userID := m.userID
	t.dispatch(m, EventLogout)
	t.notifier.SessionExpired(userID)
}

// State returns the current machine state for the token.
func (t *Tracker) State(token string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.sessions[token]
	if !ok {
		return State{}, false
	}
	return m.state, true
}

// Close cancels every pending timer. Sessions persisted in the identity
// store are left alone.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for token, m := range t.sessions {
		m.timers.cancelAll()
		delete(t.sessions, token)
	}
}

func (t *Tracker) event(token string, e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.sessions[token]
	if !ok {
		return
	}
	t.dispatch(m, e)
}

// dispatch applies one event under the tracker lock.
func (t *Tracker) dispatch(m *machine, e Event) {
	next, effects := Transition(m.state, e)
	m.state = next

	for _, effect := range effects {
		t.apply(m, effect)
	}

	if m.state.Phase == PhaseLoggedOut {
		m.timers.cancelAll()
		delete(t.sessions, m.token)
	}
}

func (t *Tracker) apply(m *machine, effect Effect) {
	switch effect {
	case EffectCancelTimers:
		m.timers.cancelAll()

	case EffectScheduleTimers:
		token := m.token
		m.timers.warning = t.clock.AfterFunc(SessionTimeout-WarningLead, func() {
			t.event(token, EventWarningFired)
		})
		m.timers.expiry = t.clock.AfterFunc(SessionTimeout, func() {
			t.event(token, EventExpiryFired)
		})

	case EffectScheduleCountdown:
		token := m.token
		m.timers.countdown = t.clock.AfterFunc(countdownTick, func() {
			t.event(token, EventCountdownTick)
		})

	case EffectStopCountdown:
		m.timers.stopCountdown()

	case EffectNotifyWarning:
		t.notifier.SessionWarning(m.userID, m.state.SecondsRemaining)

	case EffectNotifyExtended:
		t.notifier.SessionExtended(m.userID)

	case EffectNotifyExpired:
		t.notifier.SessionExpired(m.userID)

	case EffectClearIdentity:
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := t.identities.Clear(ctx, m.token); err != nil {
			log.Printf("failed to clear session identity: %v", err)
		}

	case EffectNavigateLogin:
		t.navigator.NavigateToLogin(m.userID)
	}
}
