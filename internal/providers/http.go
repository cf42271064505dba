package providers

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"github.com/tusklang/tusk-go/internal/registry"
)

// RestyClient is the default HTTP Client collaborator.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient builds a client with sane connection reuse defaults.
func NewRestyClient() *RestyClient {
	return &RestyClient{client: resty.New()}
}

// Close releases idle connections.
func (c *RestyClient) Close() error {
	return c.client.Close()
}

// Request implements registry.HTTPClient.
func (c *RestyClient) Request(ctx context.Context, method, url string, opts registry.HTTPOptions) (registry.HTTPResponse, error) {
	req := c.client.R().SetContext(ctx)
	if len(opts.Headers) > 0 {
		req.SetHeaders(opts.Headers)
	}
	if opts.Body != "" {
		req.SetBody(opts.Body)
	}
	if opts.Timeout > 0 {
		req.SetTimeout(opts.Timeout)
	}

	res, err := req.Execute(method, url)
	if err != nil {
		return registry.HTTPResponse{}, registry.MapTimeout(fmt.Errorf("http request failed: %w", err))
	}

	headers := make(map[string]string, len(res.Header()))
	for k := range res.Header() {
		headers[k] = res.Header().Get(k)
	}
	return registry.HTTPResponse{
		StatusCode: res.StatusCode(),
		Body:       res.String(),
		Headers:    headers,
	}, nil
}
