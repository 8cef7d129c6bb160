package classify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobby57/memoLib-sub019/internal/classify"
	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/retry"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAI(t *testing.T, srv *httptest.Server) *classify.AIClassifier {
	t.Helper()
	cfg := &classify.AIConfig{BaseURL: srv.URL + "/v1/", Model: "test-model", Token: "secret"}
	require.NoError(t, cfg.Finalize(nil))
	return classify.NewAIClassifier(cfg, []string{"billing", "deadline", "general"}, discard())
}

func TestAIClassifier(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		"Here you go:\n```json\n{\"label\": \"deadline\", \"confidence\": 0.82, \"rationale\": \"hearing date\"}\n```")

	got, err := newAI(t, srv).Classify(context.Background(), input(units.SourceEmail, "Hearing", "on Monday"))
	require.NoError(t, err)
	assert.Equal(t, units.Classification{
		Label:      "deadline",
		Confidence: 0.82,
		Provider:   classify.ProviderAI,
		Rationale:  "hearing date",
	}, got)
}

func TestAIClassifierFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		content   string
		permanent bool
	}{
		{"unknown label", http.StatusOK, `{"label": "poetry", "confidence": 0.9}`, false},
		{"confidence out of range", http.StatusOK, `{"label": "billing", "confidence": 1.5}`, false},
		{"unparseable", http.StatusOK, "I cannot help with that", false},
		{"server error", http.StatusBadGateway, "", false},
		{"rate limited", http.StatusTooManyRequests, "", false},
		{"bad request", http.StatusBadRequest, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, tt.content)

			_, err := newAI(t, srv).Classify(context.Background(), input(units.SourceEmail, "", "text"))
			require.ErrorIs(t, err, classify.ErrClassificationFailed)

			assert.Equal(t, tt.permanent, retry.IsPermanent(err))
		})
	}
}
