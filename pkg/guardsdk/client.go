package guardsdk

import (
	"net/http"
	"strings"
	"time"
)

// ServiceKeyHeader carries the service key on privileged requests.
const ServiceKeyHeader = "X-API-Key"

// Client talks to a guard service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// ServiceKey authenticates IssueToken and RefreshToken. Other calls work
	// without it.
	ServiceKey string
}

// NewClient returns a Client with a 10 second timeout.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		ServiceKey: serviceKey,
	}
}
