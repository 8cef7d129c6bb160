package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobby57/memoLib-sub019/internal/api"
	"github.com/mobby57/memoLib-sub019/internal/config"
	"github.com/mobby57/memoLib-sub019/internal/infrastructure"
	"github.com/mobby57/memoLib-sub019/internal/pipeline"
	"github.com/mobby57/memoLib-sub019/pkg/module"
)

const memoryConfig = `
store = "memory"

[storage]
provider = "memory"

[channels]
archive = true
`

func newRouter(t *testing.T) *module.Router {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.BaseConfigFile), []byte(memoryConfig), 0644))
	t.Chdir(dir)

	cfg, err := config.Load()
	require.NoError(t, err)

	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	m, err := api.NewModule(cfg, infra)
	require.NoError(t, err)

	router := module.NewRouter()
	router.Mount(m)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestToAuditTrail(t *testing.T) {
	router := newRouter(t)
	email := `{"messageId":"m-1","from":"client@example.com","subject":"Invoice","text":"Please pay invoice 42"}`

	rec := do(router, "POST", "/api/tenants/acme/channels/email", email)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var created pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Unit)
	assert.False(t, created.Duplicate)
	assert.NotEmpty(t, created.Unit.StorageKey)
	unitPath := "/api/tenants/acme/units/" + created.Unit.ID.String()

	rec = do(router, "POST", "/api/tenants/acme/channels/email", email)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, "GET", unitPath, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, "GET", unitPath+"/raw", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, email, rec.Body.String())

	rec = do(router, "GET", unitPath+"/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var trail struct {
		Events   []json.RawMessage `json:"events"`
		Verified bool              `json:"verified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trail))
	assert.True(t, trail.Verified)
	assert.GreaterOrEqual(t, len(trail.Events), 3)
}

func TestTenantIsolation(t *testing.T) {
	router := newRouter(t)

	rec := do(router, "POST", "/api/tenants/acme/channels/sms", `{"sid":"s-1","from":"+33600000000","body":"rappel audience"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(router, "GET", "/api/tenants/globex/units/"+created.Unit.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, "GET", "/api/tenants/globex/units/"+created.Unit.ID.String()+"/audit", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesRejectBadInput(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown source", "POST", "/api/tenants/acme/channels/fax", `{}`, http.StatusBadRequest},
		{"invalid unit id", "GET", "/api/tenants/acme/units/not-a-uuid", "", http.StatusBadRequest},
		{"resolve unknown unit", "POST", "/api/tenants/acme/units/6f1c2d8e-6a3b-4b1e-9a61-2c6d3f9a7b10/resolve", `{"label":"billing","actor":"reviewer@example.com"}`, http.StatusNotFound},
		{"review queue", "GET", "/api/tenants/acme/units/review", "", http.StatusOK},
		{"list", "GET", "/api/tenants/acme/units", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}
