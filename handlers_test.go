package main

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kwv/stepview/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populatedTracker returns a tracker holding testSnapshot.
func populatedTracker() *view.SnapshotTracker {
	st := view.NewSnapshotTracker()
	st.Update(testSnapshot())
	return st
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name        string
		tracker     *view.SnapshotTracker
		hasSnapshot bool
	}{
		{"empty", view.NewSnapshotTracker(), false},
		{"populated", populatedTracker(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHTTPServer(tt.tracker, view.DefaultRenderConfig(), nil)
			rec := serve(t, h, "/health")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Status      string `json:"status"`
				HasSnapshot bool   `json:"hasSnapshot"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "ok", body.Status)
			assert.Equal(t, tt.hasSnapshot, body.HasSnapshot)
		})
	}
}

func TestEndpoints_NoSnapshot(t *testing.T) {
	h := newHTTPServer(view.NewSnapshotTracker(), view.DefaultRenderConfig(), nil)
	for _, path := range []string{"/diagram.svg", "/diagram.png", "/strips.png", "/strips-sheet.png", "/view.json"} {
		rec := serve(t, h, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestDiagramSVG(t *testing.T) {
	h := newHTTPServer(populatedTracker(), view.DefaultRenderConfig(), nil)

	for _, target := range []string{"/diagram.svg", "/diagram.svg?zoom=1", "/diagram.svg?poses=true"} {
		rec := serve(t, h, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
		assert.True(t, strings.Contains(rec.Body.String(), "<svg"), target)
	}

	rec := serve(t, h, "/diagram.svg?zoom=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiagramPNG(t *testing.T) {
	rc := view.DefaultRenderConfig()
	rc.Resolution = 72
	h := newHTTPServer(populatedTracker(), rc, nil)

	rec := serve(t, h, "/diagram.png?poses=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(rec.Body)
	assert.NoError(t, err)
}

func TestStrips(t *testing.T) {
	h := newHTTPServer(populatedTracker(), view.DefaultRenderConfig(), nil)

	rec := serve(t, h, "/strips.png")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := png.Decode(rec.Body)
	assert.NoError(t, err)

	rec = serve(t, h, "/strips-sheet.png?scale=2")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 4*2+20, img.Bounds().Dx())

	rec = serve(t, h, "/strips-sheet.png?scale=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStrips_NoChannels(t *testing.T) {
	st := view.NewSnapshotTracker()
	snap := testSnapshot()
	snap.Channels = nil
	st.Update(snap)
	h := newHTTPServer(st, view.DefaultRenderConfig(), nil)

	assert.Equal(t, http.StatusNotFound, serve(t, h, "/strips.png").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "/strips-sheet.png").Code)
	assert.Equal(t, http.StatusOK, serve(t, h, "/diagram.svg").Code)
}

func TestViewJSON(t *testing.T) {
	h := newHTTPServer(populatedTracker(), view.DefaultRenderConfig(), nil)

	rec := serve(t, h, "/view.json?zoom=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary view.ViewSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.True(t, summary.Zoom)
	assert.Equal(t, 1, summary.Agents)
	assert.Equal(t, 3, summary.Texels)
	assert.InDelta(t, 2*view.ViewRadius, summary.Viewport.Right-summary.Viewport.Left, 1e-9)
}

func TestIndexAndNotFound(t *testing.T) {
	h := newHTTPServer(view.NewSnapshotTracker(), view.DefaultRenderConfig(), nil)

	rec := serve(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/diagram.svg")
	assert.Contains(t, rec.Body.String(), "/strips-sheet.png")

	assert.Equal(t, http.StatusNotFound, serve(t, h, "/nope").Code)
}
