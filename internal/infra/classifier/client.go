package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	domain "github.com/bryanwahyu/diagnoflow/internal/domain/diagnosis"
)

// Client talks to the external detection service. The service is a
// black box to this core: slides in, verdict + confidence out.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// predictionResponse mirrors the model API's JSON body
type predictionResponse struct {
	Predictions []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
}

// Classify sends the slides as one multipart request and maps the answer
// onto the domain result
func (c *Client) Classify(ctx context.Context, disease domain.Disease, images [][]byte) (*domain.ClassifyResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i, img := range images {
		part, err := w.CreateFormFile("images", fmt.Sprintf("slide-%d.png", i))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(img); err != nil {
			return nil, err
		}
	}
	if err := w.WriteField("disease", string(disease)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/predict", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, string(b))
	}

	var pr predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decoding classifier response: %w", err)
	}

	out := &domain.ClassifyResult{
		Verdict:    pr.Verdict,
		Confidence: pr.Confidence,
	}
	// older model deployments report 0-1 fractions
	if out.Confidence <= 1 && out.Confidence > 0 {
		out.Confidence *= 100
	}
	for _, p := range pr.Predictions {
		out.PerImage = append(out.PerImage, p.Label)
	}
	return out, nil
}
