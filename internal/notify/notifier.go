// Package notify carries the transient-notification and navigation
// primitives the session engine emits through.
package notify

import "log"

// LogNotifier writes notifications to the process log. It stands in for
// a real push channel (websocket, SSE) in single-binary deployments.
type LogNotifier struct{}

func (LogNotifier) SessionWarning(userID string, secondsRemaining int) {
	log.Printf("session warning for user %s: logging out in %d seconds", userID, secondsRemaining)
}

func (LogNotifier) SessionExpired(userID string) {
	log.Printf("session expired for user %s", userID)
}

func (LogNotifier) SessionExtended(userID string) {
	log.Printf("session extended for user %s", userID)
}

// LogNavigator records the redirect-to-login that a client would follow
// on forced expiry.
type LogNavigator struct{}

func (LogNavigator) NavigateToLogin(userID string) {
	log.Printf("redirecting user %s to login", userID)
}
