package kokoro

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	openai "github.com/sashabaranov/go-openai"
)

const (
	RefererURL = "http://localhost"
	AppTitle   = "Kokoro wrapper smoke test"
)

type headerTransport struct {
	Transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	req.Header.Set("HTTP-Referer", RefererURL)
	req.Header.Set("X-Title", AppTitle)

	return base.RoundTrip(req)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &headerTransport{Transport: http.DefaultTransport},
		Timeout:   timeout,
	}
}

// CreateClient returns an OpenAI client pointed at the Kokoro server's
// OpenAI-compatible routes. Kokoro ignores the key but the client always
// sends one.
func CreateClient(baseURL, apiKey string, httpClient *http.Client) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"
	config.HTTPClient = httpClient

	return openai.NewClientWithConfig(config)
}

// createRestClient covers the routes go-openai has no method for.
func createRestClient(baseURL string, httpClient *http.Client) *resty.Client {
	return resty.NewWithClient(httpClient).SetBaseURL(baseURL)
}
