package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const maxResponseBytes = 10 << 20

// APIError is a non-2xx Admin API response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify: status %d: %s", e.Status, e.Body)
}

// GraphQLError is a response whose top-level "errors" array is non-empty.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "shopify graphql: " + strings.Join(e.Messages, "; ")
}

// GraphQLClient talks to one shop's Admin GraphQL endpoint.
type GraphQLClient struct {
	endpoint string
	token    string
	http     *http.Client
	log      *logrus.Entry
}

// Query posts query with variables and decodes the "data" member into out.
// out may be nil when only errors matter.
func (c *GraphQLClient) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables,omitempty"`
	}{query, variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	body, err := do(ctx, c.http, http.MethodPost, c.endpoint, c.token, payload)
	if err != nil {
		c.log.WithError(err).Error("GraphQL request failed")
		return err
	}

	if errs := gjson.GetBytes(body, "errors"); errs.Exists() && len(errs.Array()) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range errs.Array() {
			gqlErr.Messages = append(gqlErr.Messages, e.Get("message").String())
		}
		return gqlErr
	}

	if out == nil {
		return nil
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return errors.New("shopify graphql: response has no data")
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

// RESTClient talks to one shop's Admin REST API. Paths are relative to
// /admin/api/<version>/ and get a .json suffix when it is missing.
type RESTClient struct {
	base  string
	token string
	http  *http.Client
	log   *logrus.Entry
}

func (c *RESTClient) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *RESTClient) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *RESTClient) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *RESTClient) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *RESTClient) Do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	body, err := do(ctx, c.http, method, c.url(path), c.token, payload)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Error("REST request failed")
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *RESTClient) url(path string) string {
	path = strings.TrimPrefix(path, "/")
	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i:]
	}
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}
	return c.base + "/" + path + query
}

func do(ctx context.Context, client *http.Client, method, url, token string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(AccessTokenHeader, token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
