// Package sentimentapi classifies text through an HTTP sentiment service.
package sentimentapi

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

type Client struct {
	url string
	c   *http.Client
}

// New targets baseURL + "/classify".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		c:   &http.Client{Timeout: timeout},
	}
}

type classifyReq struct {
	Text string `json:"text"`
}

type score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *Client) Classify(ctx context.Context, text string) (string, error) {
	b, err := json.Marshal(classifyReq{Text: text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/classify", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("sentiment read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sentiment %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return decodeLabel(body)
}

// decodeLabel accepts a single {"label","score"} object or a list of them
// (text-classification pipelines return the latter); the top score wins.
func decodeLabel(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	var scores []score
	switch {
	case len(body) > 0 && body[0] == '[':
		if err := json.Unmarshal(body, &scores); err != nil {
			// [[{...}]] when the service batches.
			var nested [][]score
			if err2 := json.Unmarshal(body, &nested); err2 != nil || len(nested) == 0 {
				return "", fmt.Errorf("sentiment decode: %w", err)
			}
			scores = nested[0]
		}
	default:
		var one score
		if err := json.Unmarshal(body, &one); err != nil {
			return "", fmt.Errorf("sentiment decode: %w", err)
		}
		scores = []score{one}
	}

	best := -1
	for i, s := range scores {
		if s.Label == "" {
			continue
		}
		if best < 0 || s.Score > scores[best].Score {
			best = i
		}
	}
	if best < 0 {
		return "", errors.New("sentiment: response has no label")
	}
	return strings.ToLower(scores[best].Label), nil
}
