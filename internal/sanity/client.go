package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrDocumentExists = errors.New("document already exists")

type Config struct {
	ProjectID  string
	Dataset    string
	Token      string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

// Client talks to the Sanity HTTP data API: one endpoint for GROQ queries and
// one for mutation batches, both authenticated by bearer token.
type Client struct {
	baseURL    string
	dataset    string
	apiVersion string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, errors.New("sanity: project id is required")
	}
	if cfg.Dataset == "" {
		return nil, errors.New("sanity: dataset is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("sanity: token is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v2023-07-19"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		dataset:    cfg.Dataset,
		apiVersion: cfg.APIVersion,
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}, nil
}

type queryRequest struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

// Mutation is one entry of a mutation batch.
type Mutation struct {
	Create            map[string]any `json:"create,omitempty"`
	CreateIfNotExists map[string]any `json:"createIfNotExists,omitempty"`
}

type mutateRequest struct {
	Mutations []Mutation `json:"mutations"`
}

type MutateResult struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sanity: status %d: %s", e.StatusCode, e.Body)
}

// Query runs a GROQ query and returns the raw result field; a JSON null
// result comes back as nil.
func (c *Client) Query(ctx context.Context, groq string, params map[string]any) (json.RawMessage, error) {
	var resp queryResponse
	if err := c.post(ctx, "query", queryRequest{Query: groq, Params: params}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}
	return resp.Result, nil
}

// Mutate submits a mutation batch. A 409 maps to ErrDocumentExists.
func (c *Client) Mutate(ctx context.Context, mutations ...Mutation) (*MutateResult, error) {
	var resp MutateResult
	if err := c.post(ctx, "mutate", mutateRequest{Mutations: mutations}, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("%w: %v", ErrDocumentExists, err)
		}
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, op string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sanity: marshal %s: %w", op, err)
	}

	url := fmt.Sprintf("%s/%s/data/%s/%s", c.baseURL, c.apiVersion, op, c.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("sanity: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sanity: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("sanity: read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("sanity: decode %s response: %w", op, err)
	}
	return nil
}
