package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SubnetScope/models"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *models.ChatResponse
		wantErr error
	}{
		{
			name:   "Успешный ответ",
			status: http.StatusOK,
			body: `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
				"content":[{"type":"text","text":"Risk is moderate."}],
				"stop_reason":"end_turn","usage":{"input_tokens":40,"output_tokens":5}}`,
			want: &models.ChatResponse{
				Content: "Risk is moderate.",
				Model:   "claude-3-5-haiku-latest",
				Usage:   models.TokenUsage{PromptTokens: 40, CompletionTokens: 5, TotalTokens: 45},
			},
		},
		{
			name:   "Нет текстовых блоков",
			status: http.StatusOK,
			body: `{"id":"msg_2","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
				"content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`,
			wantErr: models.ErrEmptyCompletion,
		},
		{
			name:   "Перегрузка API",
			status: http.StatusServiceUnavailable,
			body:   `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				assert.Equal(t, "/v1/messages", r.URL.Path)

				var req map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "claude-3-5-haiku-latest", req["model"])
				assert.NotEmpty(t, req["system"])

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{APIKey: "k", BaseURL: srv.URL + "/", RequestTimeout: 5 * time.Second})
			got, err := c.Complete(context.Background(), models.ChatRequest{
				Messages: []models.ChatMessage{
					{Role: models.RoleSystem, Content: "You are a risk analyst."},
					{Role: models.RoleUser, Content: "Summarise."},
				},
				Temperature: 0.4,
				MaxTokens:   400,
			})

			assert.Equal(t, 1, calls)
			switch {
			case tt.want != nil:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}
