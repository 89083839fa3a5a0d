package collector

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// statusError turns a non-200 response into an error. Client errors other
// than 429 are permanent.
func statusError(source string, status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s: status %d, body: %s", ErrPermanent, source, status, string(body))
	}
	return fmt.Errorf("%s: status %d, body: %s", source, status, string(body))
}
