package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDo(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantErr    int
		wantCalls  int32
	}{
		{name: "Успешный запрос", statuses: []int{200}, wantStatus: 200, wantCalls: 1},
		{name: "Ошибка сервера без повторов", statuses: []int{503}, wantErr: 503, wantCalls: 1},
		{name: "Повтор после ошибки", statuses: []int{503, 200}, maxRetries: 3, wantStatus: 200, wantCalls: 2},
		{name: "Клиентская ошибка не повторяется", statuses: []int{400}, maxRetries: 3, wantStatus: 400, wantCalls: 1},
		{name: "Повторы исчерпаны", statuses: []int{429, 429, 429}, maxRetries: 2, wantErr: 429, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, "payload", string(body))
				status := tt.statuses[len(tt.statuses)-1]
				if int(n) <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				w.WriteHeader(status)
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{
				Timeout:         time.Second,
				RequestsPerSec:  100,
				MaxRetries:      tt.maxRetries,
				MaxRetryTimeout: 10 * time.Second,
			})

			req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
			require.NoError(t, err)

			resp, err := c.Do(req)
			assert.Equal(t, tt.wantCalls, calls.Load())

			if tt.wantErr != 0 {
				var statusErr *HTTPStatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.wantErr, statusErr.StatusCode)
				return
			}
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
