package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// apiError is the plain-text error body http.Error produces server side.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// doRequest sends a JSON request to the server, attaching the stored
// session cookie. A Set-Cookie for user_id in the response replaces the
// stored cookie so login and verify refresh the session transparently.
func doRequest(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, cfg.ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.Cookie != "" {
		req.AddCookie(&http.Cookie{Name: "user_id", Value: cfg.Cookie})
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "user_id" {
			cfg.Cookie = c.Value
		}
	}

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
