// Package amazon is a client for the amazon.jobs search.json endpoint.
package amazon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/clients/transport"
	log "github.com/sirupsen/logrus"
	"net/http"
	"time"
)

type Client struct {
	spec      RequestSpec
	transport *transport.Transport
}

func NewClient(spec RequestSpec, timeout time.Duration) *Client {
	return &Client{
		spec:      spec,
		transport: transport.New(timeout, log.WithField("source", "AmazonAPI")),
	}
}

func (c *Client) SetHTTPClient(client transport.HTTPClient) {
	c.transport.SetHTTPClient(client)
}

func (c *Client) SetMinInterval(interval time.Duration) {
	c.transport.SetMinInterval(interval)
}

func (c *Client) SetRetryPolicy(policy transport.RetryPolicy) {
	c.transport.SetRetryPolicy(policy)
}

func (c *Client) ResultLimit() int {
	return c.spec.ResultLimit()
}

// Page is a decoded search page together with the raw body, kept for archiving.
type Page struct {
	SearchResponse
	Raw []byte
}

// Search fetches the page starting at offset.
func (c *Client) Search(ctx context.Context, offset int) (Page, error) {

	pageURL := c.spec.PageURL(offset)

	body, err := c.transport.Send(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		for key, value := range c.spec.Headers {
			req.Header.Set(key, value)
		}
		return req, nil
	})
	if err != nil {
		return Page{}, fmt.Errorf("search at offset %d: %w", offset, err)
	}

	var response SearchResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&response); err != nil {
		return Page{}, fmt.Errorf("error decoding JSON response at offset %d: %w", offset, err)
	}

	return Page{SearchResponse: response, Raw: body}, nil
}
