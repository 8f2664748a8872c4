package utils

import (
	"net/http"
	"time"

	"github.com/marcus-crane/nowplaying/shared"
)

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := uart.RT
	if rt == nil {
		rt = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", shared.USER_AGENT)
	return rt.RoundTrip(req)
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &UARoundtripper{},
	}
}
