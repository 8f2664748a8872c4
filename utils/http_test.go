package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/nowplaying/shared"
)

func TestNewHTTPClient_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	res, err := NewHTTPClient(time.Second).Get(srv.URL)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, shared.USER_AGENT, got)
}
