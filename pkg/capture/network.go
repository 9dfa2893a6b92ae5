package capture

import (
	"net/http"
	"time"
)

// RoundTripper observes outbound HTTP requests. The request entry is created
// at request start and completed at request end by key lookup; responses and
// errors pass through to the caller untouched.
//
// Do not install it on the agent's own delivery client: the transmission
// path must stay unobserved or a failing send would report itself.
type RoundTripper struct {
	inner    http.RoundTripper
	recorder Recorder
}

// NewRoundTripper wraps inner with network capture. A nil inner uses
// http.DefaultTransport.
func NewRoundTripper(inner http.RoundTripper, recorder Recorder) *RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &RoundTripper{inner: inner, recorder: recorder}
}

// RoundTrip implements http.RoundTripper.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	method := req.Method
	target := req.URL.String()

	key := rt.recorder.StartNetwork(method, target)
	start := time.Now()

	resp, err := rt.inner.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		rt.recorder.CompleteNetwork(key, method, target, 0, elapsed, err.Error())
		return nil, err
	}
	rt.recorder.CompleteNetwork(key, method, target, resp.StatusCode, elapsed, "")
	return resp, nil
}

// Client returns an http.Client whose transport is wrapped with capture.
func Client(recorder Recorder) *http.Client {
	return &http.Client{Transport: NewRoundTripper(nil, recorder)}
}
