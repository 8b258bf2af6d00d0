package session

import "net/http"

// UnauthorizedTransport wraps an http.RoundTripper and watches
// responses: any unauthorized status runs the manual-logout path plus an
// expiry notification. It is a pass-through for everything else.
type UnauthorizedTransport struct {
	inner   http.RoundTripper
	tracker *Tracker
	token   string
}

func NewUnauthorizedTransport(inner http.RoundTripper, tracker *Tracker, token string) *UnauthorizedTransport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &UnauthorizedTransport{inner: inner, tracker: tracker, token: token}
}

func (u *UnauthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := u.inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		u.tracker.HandleUnauthorized(u.token)
	}

	return resp, nil
}
