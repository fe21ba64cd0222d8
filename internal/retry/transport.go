package retry

import (
	"io"
	"net/http"
	"time"
)

// Transport retries requests through Base. Requests with a body are only
// retried when GetBody is set.
type Transport struct {
	Base     http.RoundTripper
	Strategy Strategy
	On       *On
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for n := uint(0); ; n++ {
		resp, err := t.base().RoundTrip(req)
		delay, exhausted := t.strategy().Delay(n)
		if exhausted || t.On == nil || !t.retriable(resp, err) {
			return resp, err
		}
		if req.Body != nil && req.GetBody == nil {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(req.Context())
			req.Body = body
		}
	}
}

func (t *Transport) retriable(resp *http.Response, err error) bool {
	if err != nil {
		return t.On.Error(err)
	}
	return t.On.Response(resp)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) strategy() Strategy {
	if t.Strategy != nil {
		return t.Strategy
	}
	return Never{}
}
