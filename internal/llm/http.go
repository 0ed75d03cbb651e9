package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON sends body as JSON and decodes the reply into out. A non-2xx
// status is an error carrying the raw body; apiErr lets the caller surface
// a structured error message from the decoded reply first.
func postJSON(ctx context.Context, client *http.Client, name, url string, headers map[string]string, body, out any, apiErr func() error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", name, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("%s returned status %d: %s", name, resp.StatusCode, string(raw))
		}
		return fmt.Errorf("decoding %s response: %w", name, err)
	}
	if apiErr != nil {
		if err := apiErr(); err != nil {
			return err
		}
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s returned status %d: %s", name, resp.StatusCode, string(raw))
	}
	return nil
}
