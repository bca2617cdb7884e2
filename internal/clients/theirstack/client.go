// Package theirstack is a client for the TheirStack job search API.
package theirstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/clients/transport"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net/http"
	"time"
)

var ErrMissingAPIKey = errors.New("missing variable: THEIR_STACK_API_KEY")

type Client struct {
	apiURL    string
	apiKey    string
	transport *transport.Transport
}

func NewClient(apiURL, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		apiURL:    apiURL,
		apiKey:    apiKey,
		transport: transport.New(timeout, log.WithField("source", "TheirStack")),
	}, nil
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

// Response is a decoded search response together with the raw body, kept for backups.
type Response struct {
	SearchResponse
	Raw json.RawMessage
}

func (c *Client) Search(ctx context.Context, request SearchRequest) (Response, error) {

	payload, err := json.Marshal(request)
	if err != nil {
		return Response{}, errors.Wrap(err, "encode search request")
	}

	body, err := c.transport.Send(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return Response{}, fmt.Errorf("search page %d: %w", request.Page, err)
	}

	var response SearchResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&response); err != nil {
		return Response{}, fmt.Errorf("error decoding JSON response: %w", err)
	}

	return Response{SearchResponse: response, Raw: body}, nil
}
