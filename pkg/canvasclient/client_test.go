package canvasclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub-be/pkg/canvas"
)

func TestLoad_Stored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/note-canvas/u%201", r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"pages":[{"id":0,"lines":[{"id":9,"points":[{"x":1,"y":2}],"stroke":"#000","strokeWidth":2,"tool":"draw"}]}]},"updatedAt":"2024-01-02T03:04:05Z"}`))
	}))
	defer srv.Close()

	doc, updatedAt, err := New(srv.URL, nil).Load(context.Background(), "u 1")

	require.NoError(t, err)
	require.NotNil(t, updatedAt)
	assert.Equal(t, 2024, updatedAt.Year())
	assert.Equal(t, int64(10), doc.NextID())
}

func TestLoad_NothingStored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer srv.Close()

	doc, updatedAt, err := New(srv.URL, nil).Load(context.Background(), "u1")

	require.NoError(t, err)
	assert.Nil(t, updatedAt)
	assert.Equal(t, 1, doc.PageCount())
	assert.Equal(t, int64(1), doc.NextID())
}

func TestLoad_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"pages":"not-an-array"},"updatedAt":"2024-01-02T03:04:05Z"}`))
	}))
	defer srv.Close()

	doc, _, err := New(srv.URL, nil).Load(context.Background(), "u1")

	assert.ErrorIs(t, err, canvas.ErrMalformedSnapshot)
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.PageCount())
}

func TestLoad_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Unable to load notes."}`))
	}))
	defer srv.Close()

	_, _, err := New(srv.URL, nil).Load(context.Background(), "u1")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
	assert.Equal(t, "Unable to load notes.", se.Message)
}

func TestLoad_NoUser(t *testing.T) {
	_, _, err := New("http://unused", nil).Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSave(t *testing.T) {
	var got struct {
		UserID string          `json:"userId"`
		Data   json.RawMessage `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/note-canvas", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"updatedAt":"2024-05-06T07:08:09Z"}`))
	}))
	defer srv.Close()

	doc := canvas.New()
	doc.CreatePage()

	updatedAt, err := New(srv.URL, nil).Save(context.Background(), "u1", doc.Serialize())

	require.NoError(t, err)
	require.NotNil(t, updatedAt)
	assert.Equal(t, "u1", got.UserID)
	assert.JSONEq(t, `{"pages":[{"id":0,"slides":[],"lines":[],"textBoxes":[]},{"id":1,"slides":[],"lines":[],"textBoxes":[]}],"nextId":2,"currentPageIndex":1}`, string(got.Data))
}

func TestLoader_DiscardsSupersededResult(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/note-canvas/slow" {
			<-release
		}
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer srv.Close()
	defer close(release)

	loader := NewLoader(New(srv.URL, nil))

	var mu sync.Mutex
	var results []string
	done := make(chan struct{})
	apply := func(r LoadResult) {
		mu.Lock()
		results = append(results, r.UserID)
		mu.Unlock()
		if r.UserID == "fast" {
			close(done)
		}
	}

	loader.Start(context.Background(), "slow", apply)
	loader.Start(context.Background(), "fast", apply)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fast load never applied")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fast"}, results)
}

func TestLoader_Cancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	loader := NewLoader(New(srv.URL, nil))
	applied := make(chan LoadResult, 1)
	loader.Start(context.Background(), "u1", func(r LoadResult) { applied <- r })
	loader.Cancel()

	select {
	case r := <-applied:
		t.Fatalf("cancelled load applied: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}
