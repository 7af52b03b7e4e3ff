package httputil

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"jobfeed/config"
)

type Clients struct {
	Scraping *http.Client // optionally proxied, for job boards
	API      *http.Client // direct, for outbound integrations
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			log.Printf("Scraping client using proxy: %s", proxyURL.Host)
		} else {
			log.Printf("Warning: ignoring bad PROXY_URL: %v", err)
		}
	}

	scraping := &http.Client{
		Timeout:   20 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 30 * time.Second},
	}
}
