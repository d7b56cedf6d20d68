package enrichment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IT22277190/AuraLink-group55/errors"
	"github.com/IT22277190/AuraLink-group55/message"
)

// fakeBackend serves an OpenAI-compatible chat-completion endpoint returning
// a fixed content string, and records the prompts it receives.
func fakeBackend(t *testing.T, content string, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			prompts = append(prompts, m.Content)
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "sk-test",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestQuote(t *testing.T) {
	srv, prompts := fakeBackend(t, "  The air hung heavy with summer.  ", http.StatusOK)
	client := testClient(t, srv)

	quote, err := client.Quote(context.Background(), 25.5, 60)
	require.NoError(t, err)
	assert.Equal(t, "The air hung heavy with summer.", quote)

	require.Len(t, *prompts, 2)
	assert.Contains(t, (*prompts)[1], "25.5")
	assert.Contains(t, (*prompts)[1], "60% humidity")
}

func TestSummarize(t *testing.T) {
	srv, prompts := fakeBackend(t, "Deadline moved to Friday.", http.StatusOK)
	client := testClient(t, srv)

	summary, err := client.Summarize(context.Background(), "From: boss@work.com\nSubject: Deadline\n\nMoved up.")
	require.NoError(t, err)
	assert.Equal(t, "Deadline moved to Friday.", summary)

	require.Len(t, *prompts, 2)
	assert.Contains(t, (*prompts)[1], "boss@work.com")
}

func TestClassifyUrgency(t *testing.T) {
	tests := []struct {
		response string
		expected message.UrgencyLevel
	}{
		{"HIGH", message.UrgencyHigh},
		{"medium", message.UrgencyMedium},
		{" low ", message.UrgencyLow},
		{"This email is quite urgent", message.UrgencyLow},
	}

	for _, test := range tests {
		t.Run(test.response, func(t *testing.T) {
			srv, _ := fakeBackend(t, test.response, http.StatusOK)
			client := testClient(t, srv)

			level, err := client.ClassifyUrgency(context.Background(), "some email")
			require.NoError(t, err)
			assert.Equal(t, test.expected, level)
		})
	}
}

func TestBackendUnavailable(t *testing.T) {
	srv, _ := fakeBackend(t, "", http.StatusInternalServerError)
	client := testClient(t, srv)

	_, err := client.Quote(context.Background(), 21, 50)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.True(t, stderrors.Is(err, errors.ErrBackendUnavailable))
}

func TestBackendMalformed_NoChoices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-test","object":"chat.completion","choices":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := testClient(t, srv)

	_, err := client.Summarize(context.Background(), "some email")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.True(t, stderrors.Is(err, errors.ErrBackendMalformed))
}

func TestBackendMalformed_EmptyContent(t *testing.T) {
	srv, _ := fakeBackend(t, "   ", http.StatusOK)
	client := testClient(t, srv)

	_, err := client.Quote(context.Background(), 21, 50)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrBackendMalformed))
}
