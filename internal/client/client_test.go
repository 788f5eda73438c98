package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCreds struct {
	mu    sync.Mutex
	token string
}

func (m *memCreds) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *memCreds) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memCreds) Clear(_ context.Context) error {
	return m.SetToken(context.Background(), "")
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *memCreds) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	creds := &memCreds{token: "tok"}
	return New(server.URL+"/api/", creds, opts...), creds
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_CreateChatSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/sessions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]int64
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(9), body["workspace_id"])

		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "workspace_id": 9, "session_id": "sess-9"})
	})

	session, err := c.CreateChatSession(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, "sess-9", session.SessionID)
	assert.Equal(t, int64(9), session.WorkspaceID)
}

func TestClient_GetChatMessages(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/sessions/sess-1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messages": [
			{"id": 1, "session_id": 12, "message_type": "user", "content": "sales?", "created_at": "2024-01-02T03:04:05Z"},
			{"id": 2, "session_id": 12, "message_type": "assistant", "content": "here",
			 "metadata": {"insight_id": 5, "tokens_used": 80},
			 "chart_data": {"type": "bar", "title": "Sales", "data": {"labels": ["a"], "datasets": [{"label": "s", "data": [4]}]}},
			 "created_at": "2024-01-02T03:04:06Z"},
			{"id": 3, "session_id": 12, "message_type": "assistant", "content": "again",
			 "chart_data": "{\"type\": \"pie\", \"data\": {\"labels\": [\"x\"], \"datasets\": [{\"data\": [1]}]}}",
			 "created_at": "2024-01-02T03:04:07Z"},
			{"id": 4, "session_id": 12, "message_type": "assistant", "content": "odd", "chart_data": 17,
			 "created_at": "2024-01-02T03:04:08Z"}
		]}`)
	})

	msgs, err := c.GetChatMessages(context.Background(), "sess-1")

	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "sess-1", msgs[0].SessionID)
	assert.Nil(t, msgs[0].Chart)

	require.NotNil(t, msgs[1].Chart)
	assert.Equal(t, domain.ChartBar, msgs[1].Chart.Type)
	assert.Equal(t, "Sales", msgs[1].Chart.Title)
	require.NotNil(t, msgs[1].Metadata)
	assert.Equal(t, int64(5), *msgs[1].Metadata.InsightID)

	require.NotNil(t, msgs[2].Chart)
	assert.Equal(t, domain.ChartPie, msgs[2].Chart.Type)
	assert.Nil(t, msgs[3].Chart)
	assert.Equal(t, "odd", msgs[3].Content)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{"message field", http.StatusBadRequest, `{"message": "bad input", "code": "INVALID"}`, "bad input", "INVALID"},
		{"error field", http.StatusNotFound, `{"error": "not found"}`, "not found", ""},
		{"no body", http.StatusInternalServerError, ``, genericErrorMessage, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.GetWorkspace(context.Background(), 1)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestClient_UnauthorizedClearsToken(t *testing.T) {
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})

	_, err := c.Profile(context.Background())

	assert.True(t, IsUnauthorized(err))
	_, ok := creds.Token()
	assert.False(t, ok)
}

func TestClient_LoginStoresToken(t *testing.T) {
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var in domain.UserLogin
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ana@example.com", in.Email)
		writeJSON(w, http.StatusOK, domain.AuthResponse{User: domain.User{ID: 3, Email: in.Email}, Token: "fresh"})
	})

	resp, err := c.Login(context.Background(), domain.UserLogin{Email: "ana@example.com", Password: "secret123"})

	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.User.ID)
	token, _ := creds.Token()
	assert.Equal(t, "fresh", token)
}

func TestClient_ListInsightsQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/insights", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("workspace_id"))
		assert.Equal(t, "bar_chart", r.URL.Query().Get("insight_type"))
		assert.Equal(t, "", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, domain.InsightList{Total: 1, Insights: []domain.GeneratedInsight{{ID: 8}}})
	})

	list, err := c.ListInsights(context.Background(), domain.InsightFilter{WorkspaceID: 4, InsightType: "bar_chart"})

	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, int64(8), list.Insights[0].ID)
}

func TestClient_UploadFile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/upload", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "sales.csv", header.Filename)
		assert.Equal(t, "a,b\n1,2\n", string(data))
		assert.Equal(t, "Q1 sales", r.FormValue("name"))

		writeJSON(w, http.StatusCreated, domain.UploadedFile{ID: 11, OriginalFilename: header.Filename, Status: domain.FileProcessing})
	})

	file, err := c.UploadFile(context.Background(), "sales.csv", strings.NewReader("a,b\n1,2\n"), "Q1 sales")

	require.NoError(t, err)
	assert.Equal(t, int64(11), file.ID)
	assert.Equal(t, domain.FileProcessing, file.Status)
}

func TestClient_PollFileStatus(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		var mu sync.Mutex
		polls := 0
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/files/11/status":
				mu.Lock()
				polls++
				n := polls
				mu.Unlock()
				status := domain.FileProcessing
				if n >= 3 {
					status = domain.FileCompleted
				}
				writeJSON(w, http.StatusOK, domain.FileStatusReport{ID: 11, Status: status, Progress: float64(n) * 33})
			case "/api/files":
				writeJSON(w, http.StatusOK, map[string]any{"files": []domain.UploadedFile{{ID: 10}, {ID: 11, Status: domain.FileCompleted}}})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}, WithPolling(5*time.Millisecond, 2*time.Second))

		var progress []float64
		file, err := c.PollFileStatus(context.Background(), 11, func(p float64) { progress = append(progress, p) })

		require.NoError(t, err)
		assert.Equal(t, int64(11), file.ID)
		assert.Equal(t, []float64{33, 66, 99}, progress)
	})

	t.Run("fails", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, domain.FileStatusReport{ID: 11, Status: domain.FileFailed})
		}, WithPolling(5*time.Millisecond, 2*time.Second))

		_, err := c.PollFileStatus(context.Background(), 11, nil)

		assert.ErrorIs(t, err, ErrFileProcessingFailed)
		assert.Contains(t, err.Error(), "File processing failed")
	})

	t.Run("times out", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, domain.FileStatusReport{ID: 11, Status: domain.FileProcessing})
		}, WithPolling(5*time.Millisecond, 60*time.Millisecond))

		_, err := c.PollFileStatus(context.Background(), 11, nil)

		assert.ErrorIs(t, err, ErrFileProcessingTimeout)
	})
}

func TestClient_Dashboards(t *testing.T) {
	type call struct{ method, path string }
	var (
		mu    sync.Mutex
		calls []call
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path})
		mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/dashboards":
			writeJSON(w, http.StatusOK, map[string]any{"dashboards": []domain.Dashboard{{ID: 1, Name: "Sales"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/dashboards":
			var body domain.DashboardCreate
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusCreated, domain.Dashboard{ID: 2, Name: body.Name})
		case r.Method == http.MethodPut && r.URL.Path == "/api/dashboards/2":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"layout": map[string]any{"grid_cols": float64(12), "grid_rows": float64(8)}}, body)
			writeJSON(w, http.StatusOK, domain.Dashboard{ID: 2, Layout: &domain.DashboardLayout{GridCols: 12, GridRows: 8}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/dashboards/2/widgets":
			var body domain.WidgetCreate
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusCreated, domain.DashboardWidget{ID: 7, Insight: domain.GeneratedInsight{ID: body.InsightID}, Width: body.Width})
		case r.Method == http.MethodPut && r.URL.Path == "/api/dashboards/2/widgets/7":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"position_x": float64(3)}, body)
			writeJSON(w, http.StatusOK, domain.DashboardWidget{ID: 7, PositionX: 3})
		case r.Method == http.MethodDelete:
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		}
	})
	ctx := context.Background()

	list, err := c.ListDashboards(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Sales", list[0].Name)

	created, err := c.CreateDashboard(ctx, domain.DashboardCreate{Name: "Ops"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	updated, err := c.UpdateDashboard(ctx, 2, domain.DashboardUpdate{Layout: &domain.DashboardLayout{GridCols: 12, GridRows: 8}})
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Layout.GridCols)

	widget, err := c.AddWidget(ctx, 2, domain.WidgetCreate{InsightID: 8, Width: 4, Height: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(8), widget.Insight.ID)

	x := 3
	moved, err := c.UpdateWidget(ctx, 2, 7, domain.WidgetUpdate{PositionX: &x})
	require.NoError(t, err)
	assert.Equal(t, 3, moved.PositionX)

	require.NoError(t, c.RemoveWidget(ctx, 2, 7))
	require.NoError(t, c.DeleteDashboard(ctx, 2))

	_, err = c.GetDashboard(ctx, 99)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, calls, call{http.MethodDelete, "/api/dashboards/2/widgets/7"})
	assert.Contains(t, calls, call{http.MethodDelete, "/api/dashboards/2"})
}
