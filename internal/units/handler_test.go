package units_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobby57/memoLib-sub019/internal/audit"
	"github.com/mobby57/memoLib-sub019/internal/units"
	"github.com/mobby57/memoLib-sub019/pkg/pagination"
	"github.com/mobby57/memoLib-sub019/pkg/routes"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

type handlerFixture struct {
	mux   *http.ServeMux
	store *units.Memory
	blobs *storage.Memory
}

func newUnitsMux(t *testing.T) handlerFixture {
	t.Helper()
	blobs := storage.NewMemory()
	store := units.NewMemory(audit.NewMemory(discard()), blobs, discard(), pageConfig())

	mux := http.NewServeMux()
	routes.Register(mux, routes.Group{
		Prefix:   "/tenants/{tenant}",
		Children: []routes.Group{store.Handler().Routes()},
	})
	return handlerFixture{mux: mux, store: store, blobs: blobs}
}

func (f handlerFixture) seed(t *testing.T, externalID string, raw []byte, storageKey string) *units.Unit {
	t.Helper()
	u := units.NewUnit("acme", externalID, units.SourceEmail, raw, units.Content{Subject: externalID}, storageKey)
	require.NoError(t, f.store.Insert(context.Background(), u,
		audit.NewEvent("acme", u.ID, "", "RECEIVED", audit.SystemActor, "")))
	return u
}

func (f handlerFixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestHandlerFind(t *testing.T) {
	f := newUnitsMux(t)
	u := f.seed(t, "m-1", []byte("raw"), "")

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"found", "/tenants/acme/units/" + u.ID.String(), http.StatusOK},
		{"other tenant", "/tenants/globex/units/" + u.ID.String(), http.StatusNotFound},
		{"bad id", "/tenants/acme/units/nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, f.get(tt.path).Code)
		})
	}

	var got units.Unit
	require.NoError(t, json.Unmarshal(f.get("/tenants/acme/units/"+u.ID.String()).Body.Bytes(), &got))
	assert.Equal(t, units.StatusReceived, got.Status)
	assert.Empty(t, got.RawPayload)
}

func TestHandlerListAndReview(t *testing.T) {
	f := newUnitsMux(t)
	f.seed(t, "m-1", []byte("a"), "")
	u := f.seed(t, "m-2", []byte("b"), "")

	u.Status = units.StatusAmbiguous
	require.NoError(t, f.store.Transition(context.Background(), u, units.StatusReceived,
		audit.NewEvent("acme", u.ID, "RECEIVED", "AMBIGUOUS", audit.SystemActor, "")))

	var list pagination.PageResult[units.Unit]
	require.NoError(t, json.Unmarshal(f.get("/tenants/acme/units").Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	var review pagination.PageResult[units.Unit]
	rec := f.get("/tenants/acme/units/review")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	require.Len(t, review.Data, 1)
	assert.Equal(t, u.ID, review.Data[0].ID)

	require.NoError(t, json.Unmarshal(f.get("/tenants/acme/units?status=RECEIVED").Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}

func TestHandlerRaw(t *testing.T) {
	f := newUnitsMux(t)
	require.NoError(t, f.blobs.Upload(context.Background(), "raw/acme/EMAIL/abc",
		strings.NewReader("archived"), "application/octet-stream"))

	archived := f.seed(t, "m-1", []byte("stored"), "raw/acme/EMAIL/abc")
	missing := f.seed(t, "m-2", []byte("fallback"), "raw/acme/EMAIL/gone")
	inline := f.seed(t, "m-3", []byte("inline"), "")

	tests := []struct {
		name string
		unit *units.Unit
		want string
	}{
		{"archived copy", archived, "archived"},
		{"missing archive falls back", missing, "fallback"},
		{"no archive", inline, "inline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get("/tenants/acme/units/" + tt.unit.ID.String() + "/raw")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
			assert.Equal(t, tt.unit.Checksum, rec.Header().Get("X-Checksum"))
		})
	}
}
