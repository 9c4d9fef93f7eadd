// This package contains the client that submits proofs to the Privora API.
package submitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

const DefaultBaseUrl = "http://localhost:4000"

// Environment variable that overrides the API base url.
const BaseUrlEnv = "PRIVORA_API"

const submitPath = "/submit"

// Client submits proofs to the Privora API.
// The client is stateless; concurrent calls share only the base url and the
// underlying http client.
type Client struct {
	BaseUrl    string
	HttpClient *http.Client
}

// Create a client for the given base url.
func NewClient(baseUrl string) *Client {
	return &Client{
		BaseUrl:    baseUrl,
		HttpClient: http.DefaultClient,
	}
}

// Create a client reading the base url from the PRIVORA_API environment
// variable. The variable is read once; changing it afterwards has no effect
// on the client.
func NewClientFromEnv() *Client {
	baseUrl := os.Getenv(BaseUrlEnv)
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	return NewClient(baseUrl)
}

// The request body wraps the payload in a single-key envelope.
type envelope struct {
	Payload any `json:"payload"`
}

// The server rejected the request with a status outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("privora: unexpected status code %v", e.StatusCode)
}

// The server answered with a success status but the body is not valid JSON.
type DecodeError struct {
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("privora: decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SubmitProof sends the payload to the Privora API and returns the decoded
// JSON response. The payload can be any JSON-serializable value; it is sent
// as {"payload": <value>} to <base-url>/submit.
//
// Failures keep their kind: transport errors come wrapped from the http
// client, non-2xx statuses become *StatusError, and a non-JSON success body
// becomes *DecodeError.
func (c *Client) SubmitProof(ctx context.Context, payload any) (any, error) {
	body, err := json.Marshal(envelope{Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("privora: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseUrl+submitPath, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("privora: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("privora: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("privora: read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.Error("Unexpected privora response", "statusCode", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}
	var result any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &DecodeError{Body: respBody, Err: err}
	}
	return result, nil
}
