package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"upload-ai/internal/models"
)

// APIError is a non-success answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the upload-ai HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL. The default http.Client has no timeout
// because completion streams stay open until generation ends.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Upload sends the audio as a single-file multipart form.
func (c *Client) Upload(ctx context.Context, fileName string, audio io.Reader) (*models.VideoRecord, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", "audio/mpeg")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var video models.VideoRecord
	if err := c.doJSON(req, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// Transcribe asks the server to transcribe an uploaded video. A 200 answer
// that carries an error body is reported as an APIError too.
func (c *Client) Transcribe(ctx context.Context, videoID, prompt string) (string, error) {
	req, err := c.newJSONRequest(ctx, "/videos/"+url.PathEscape(videoID)+"/transcription", map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}

	var out struct {
		Transcription *string `json:"transcription"`
		Error         string  `json:"error"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.Transcription == nil {
		return "", &APIError{StatusCode: http.StatusOK, Message: out.Error}
	}
	return *out.Transcription, nil
}

// Complete streams the generated text into w as it arrives.
func (c *Client) Complete(ctx context.Context, videoID, template string, temperature float64, w io.Writer) error {
	req, err := c.newJSONRequest(ctx, "/ai/complete", map[string]any{
		"videoId":     videoID,
		"prompt":      template,
		"temperature": temperature,
	})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("completion stream interrupted: %w", err)
	}
	return nil
}

func (c *Client) ListPrompts(ctx context.Context) ([]models.PromptTemplate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prompts", nil)
	if err != nil {
		return nil, err
	}
	var list []models.PromptTemplate
	if err := c.doJSON(req, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}
