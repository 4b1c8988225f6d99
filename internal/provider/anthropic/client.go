package anthropic

import (
	"context"

	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
)

type client struct {
	url     string
	headers map[string]string
	doer    provider.HTTPDoer
}

func newClient(baseURL, apiKey, version string, extra map[string]string, doer provider.HTTPDoer) *client {
	headers := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		headers[k] = v
	}
	headers["x-api-key"] = apiKey
	headers["anthropic-version"] = version
	return &client{
		url:     baseURL + "/messages",
		headers: headers,
		doer:    doer,
	}
}

func (c *client) messages(ctx context.Context, payload []byte, opts models.ClientOptions) (provider.RawResponse, error) {
	return provider.PostJSON(ctx, c.doer, c.url, c.headers, payload, opts)
}
