package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIError represents a non-2xx response from the transcription endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// OpenAI talks to any server implementing POST /v1/audio/transcriptions
// with verbose_json output.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
}

func NewOpenAI(baseURL, apiKey, model, language string, timeout time.Duration) *OpenAI {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &OpenAI{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
	Words []Word `json:"words"`
}

func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	body, contentType, err := o.buildForm(audioPath)
	if err != nil {
		return nil, err
	}

	url := o.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var parsed verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	return parsed.segments(), nil
}

func (o *OpenAI) buildForm(audioPath string) (io.Reader, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", o.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
		{"timestamp_granularities[]", "word"},
	}
	if o.language != "" {
		fields = append(fields, [2]string{"language", o.language})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// segments attaches top-level words to the segment whose span contains
// the word's midpoint.
func (r verboseResponse) segments() []Segment {
	out := make([]Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		out = append(out, Segment{Text: strings.TrimSpace(s.Text), Start: s.Start, End: s.End})
	}
	for _, w := range r.Words {
		mid := (w.Start + w.End) / 2
		for i := range out {
			if mid >= out[i].Start && mid <= out[i].End {
				w.Word = strings.TrimSpace(w.Word)
				out[i].Words = append(out[i].Words, w)
				break
			}
		}
	}
	return out
}
