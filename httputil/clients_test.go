package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed/config"
)

func TestNewClients_Proxy(t *testing.T) {
	c := NewClients(&config.ProxyConfig{URL: "http://user:pw@proxy.local:3128"})
	tr, ok := c.Scraping.Transport.(*http.Transport)
	require.True(t, ok)

	req := httptest.NewRequest(http.MethodGet, "https://jobs.example/", nil)
	u, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:3128", u.Host)
}

func TestNewClients_StopsLongRedirectChains(t *testing.T) {
	hops := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer srv.Close()

	c := NewClients(&config.ProxyConfig{})
	resp, err := c.Scraping.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 5, hops)
}
