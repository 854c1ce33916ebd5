package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const dosageSystemPrompt = `You are a pharmacy safety reviewer. Given a medicine, its dosage guidance and a requested order, decide whether the order quantity is safe. Numeric suffixes in medicine names (e.g. "Pacimol 650") are dosage strengths, NOT quantities. Respond with JSON only: {"passed": bool, "severity": "ok"|"warning"|"critical", "reason": string}.`

const refillSystemPrompt = `You are a pharmacy refill assistant. Decide whether to send a proactive refill alert. Alert if depletion is within 7 days, or within 10 days when a prescription is required (renewal takes time). Do not alert if the most recent order was placed within the last 3 days. Respond with JSON only: {"alert": bool, "urgency": "low"|"medium"|"high", "message": string}.`

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ReviewDosage(ctx context.Context, dc DosageContext) (CheckVerdict, error) {
	payload, err := json.Marshal(dc)
	if err != nil {
		return CheckVerdict{}, err
	}
	var verdict CheckVerdict
	if err := c.complete(ctx, dosageSystemPrompt, string(payload), &verdict); err != nil {
		return CheckVerdict{}, err
	}
	switch verdict.Severity {
	case "ok", "warning", "critical":
	default:
		return CheckVerdict{}, fmt.Errorf("unknown severity %q", verdict.Severity)
	}
	return verdict, nil
}

func (c *Client) JudgeRefill(ctx context.Context, rc RefillContext) (AlertVerdict, error) {
	payload, err := json.Marshal(rc)
	if err != nil {
		return AlertVerdict{}, err
	}
	var verdict AlertVerdict
	if err := c.complete(ctx, refillSystemPrompt, string(payload), &verdict); err != nil {
		return AlertVerdict{}, err
	}
	return verdict, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string, out any) error {
	if c.baseURL == "" {
		return errors.New("oracle base URL not configured")
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return fmt.Errorf("oracle response decode failed: %w", err)
	}
	if len(chat.Choices) == 0 {
		return errors.New("oracle returned no choices")
	}

	raw := extractJSON(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("oracle verdict parse failed: %w", err)
	}
	return nil
}

// extractJSON pulls the first JSON object out of a completion, tolerating
// markdown fences and surrounding prose.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			return content[start : end+1]
		}
	}
	return content
}
