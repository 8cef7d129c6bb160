package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/time/rate"

	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/formatting"
	"github.com/mobby57/memoLib-sub019/pkg/retry"
)

// ProviderAI identifies classifications made by AIClassifier.
const ProviderAI = "ai"

const systemPrompt = `You triage inbound messages for a law practice.
Choose exactly one label from: %s.
Reply with a JSON object only: {"label": "<label>", "confidence": <0..1>, "rationale": "<one sentence>"}.
Use a low confidence when the message fits several labels or none.`

// AIClassifier calls an OpenAI-compatible chat completion endpoint. Requests
// are throttled by a token bucket shared across goroutines.
type AIClassifier struct {
	endpoint string
	model    string
	token    string
	labels   []string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// NewAIClassifier creates a classifier restricted to labels.
func NewAIClassifier(cfg *AIConfig, labels []string, logger *slog.Logger) *AIClassifier {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond == 0 {
		limit = rate.Inf
	}

	return &AIClassifier{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		model:    cfg.Model,
		token:    cfg.Token,
		labels:   labels,
		client:   &http.Client{Timeout: cfg.TimeoutDuration()},
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		logger:   logger.With("classifier", ProviderAI),
	}
}

func (c *AIClassifier) Classify(ctx context.Context, in Input) (units.Classification, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return units.Classification{}, fmt.Errorf("%w: rate limit: %w", ErrClassificationFailed, err)
	}

	content, err := c.complete(ctx, in)
	if err != nil {
		return units.Classification{}, err
	}

	v, err := formatting.Parse[verdict](content)
	if err != nil {
		return units.Classification{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	if v.Confidence < 0 || v.Confidence > 1 {
		return units.Classification{}, fmt.Errorf("%w: confidence %v out of range", ErrClassificationFailed, v.Confidence)
	}
	if len(c.labels) > 0 && !slices.Contains(c.labels, v.Label) {
		return units.Classification{}, fmt.Errorf("%w: unknown label %q", ErrClassificationFailed, v.Label)
	}

	return units.Classification{
		Label:      v.Label,
		Confidence: v.Confidence,
		Provider:   ProviderAI,
		Rationale:  v.Rationale,
	}, nil
}

func (c *AIClassifier) complete(ctx context.Context, in Input) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, strings.Join(c.labels, ", "))},
			{Role: "user", Content: userPrompt(in)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", ErrClassificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: new request: %w", ErrClassificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("%w: provider returned %s: %s",
			ErrClassificationFailed, resp.Status, strings.TrimSpace(string(detail)))

		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < http.StatusInternalServerError {
			return "", retry.Permanent(err)
		}
		return "", err
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrClassificationFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrClassificationFailed)
	}

	c.logger.DebugContext(ctx, "classification received", "tenant_id", in.TenantID, "source", in.Source)
	return out.Choices[0].Message.Content, nil
}

func userPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel: %s\n", in.Source)
	if in.Content.Sender != "" {
		fmt.Fprintf(&b, "From: %s\n", in.Content.Sender)
	}
	if in.Content.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", in.Content.Subject)
	}
	b.WriteString("\n")
	b.WriteString(in.Content.Body)
	return b.String()
}
