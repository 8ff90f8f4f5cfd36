package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/metrics"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/snapshotstore"
	"github.com/vk/framegraph/internal/source"
	"github.com/vk/framegraph/modules/frames"
	"github.com/vk/framegraph/modules/imgops"
)

type harness struct {
	t      *testing.T
	server *Server
	frames *source.Memory
}

func frame(level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return img
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	seq := source.NewMemory(frame(50), frame(50), frame(200))
	reg := registry.New()
	(&frames.Module{Frames: seq}).Register(reg)
	(&imgops.Module{}).Register(reg)

	m := metrics.New(prometheus.NewRegistry())
	sess := session.New(graph.New(), session.WithListener(m.Observe), session.WithObserver(m.ObserveCommand))
	t.Cleanup(sess.Close)

	store, err := snapshotstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := New(Config{Session: sess, Registry: reg, Store: store, Frames: seq, Metrics: m})
	return &harness{t: t, server: s, frames: seq}
}

func (h *harness) request(method, path string, body any) *http.Response {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.server.App().Test(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) decode(resp *http.Response, into any) {
	h.t.Helper()
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(into))
}

func (h *harness) createNode(typeName string, params map[string]any) string {
	h.t.Helper()
	body := map[string]any{"type": typeName}
	if params != nil {
		body["params"] = params
	}
	resp := h.request(http.MethodPost, "/api/v1/nodes", body)
	require.Equal(h.t, http.StatusCreated, resp.StatusCode)
	var view nodeView
	h.decode(resp, &view)
	return view.ID
}

func (h *harness) connect(inNode string, inIdx int, outNode string, outIdx int) *http.Response {
	return h.request(http.MethodPost, "/api/v1/connections", map[string]any{
		"input_node": inNode, "input_idx": inIdx, "output_node": outNode, "output_idx": outIdx,
	})
}

// pipeline builds Source(n_frames=2) -> ABSDiff -> Threshold(10, Binary).
func (h *harness) pipeline() (src, diff, thresh string) {
	src = h.createNode(frames.TypeSource, map[string]any{"n_frames": 2})
	diff = h.createNode("ABSDiff", nil)
	thresh = h.createNode("Threshold", nil)
	require.Equal(h.t, http.StatusCreated, h.connect(diff, 0, src, 0).StatusCode)
	require.Equal(h.t, http.StatusCreated, h.connect(diff, 1, src, 1).StatusCode)
	require.Equal(h.t, http.StatusCreated, h.connect(thresh, 0, diff, 0).StatusCode)
	resp := h.request(http.MethodPut, "/api/v1/nodes/"+thresh+"/inputs/1", map[string]any{"value": 10})
	require.Equal(h.t, http.StatusNoContent, resp.StatusCode)
	return src, diff, thresh
}

func TestAPI_PullsPNG(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	_, _, thresh := h.pipeline()

	// --- Act ---
	resp := h.request(http.MethodGet, "/api/v1/nodes/"+thresh+"/outputs/1", nil)

	// --- Assert ---
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	for _, p := range gray.Pix {
		assert.Zero(t, p)
	}

	t.Run("scalar output as JSON", func(t *testing.T) {
		resp := h.request(http.MethodGet, "/api/v1/nodes/"+thresh+"/outputs/0", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out outputResponse
		h.decode(resp, &out)
		assert.Equal(t, "float", out.Kind)
		assert.Equal(t, "fresh", out.State)
		assert.JSONEq(t, `10`, string(out.Value))
	})

	t.Run("image summary as JSON", func(t *testing.T) {
		resp := h.request(http.MethodGet, "/api/v1/nodes/"+thresh+"/outputs/1?format=json", nil)
		var out outputResponse
		h.decode(resp, &out)
		assert.Equal(t, 3, out.Width)
		assert.Equal(t, 2, out.Height)
	})
}

func TestAPI_SourceStepInvalidates(t *testing.T) {
	h := newHarness(t)
	_, _, thresh := h.pipeline()
	pixel := func() uint8 {
		resp := h.request(http.MethodGet, "/api/v1/nodes/"+thresh+"/outputs/1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		img, err := png.Decode(resp.Body)
		require.NoError(t, err)
		return img.(*image.Gray).Pix[0]
	}
	require.Zero(t, pixel())

	resp := h.request(http.MethodPost, "/api/v1/source/step", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view sourceView
	h.decode(resp, &view)
	assert.Equal(t, sourceView{Len: 3, Current: 1, Sources: 1}, view)
	assert.Equal(t, uint8(255), pixel(), "frames 1 and 2 differ by 150")

	resp = h.request(http.MethodPost, "/api/v1/source/seek", map[string]any{"index": 7})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPI_ErrorMapping(t *testing.T) {
	h := newHarness(t)
	src, diff, thresh := h.pipeline()

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown node", http.MethodGet, "/api/v1/nodes/nope", nil, http.StatusNotFound},
		{"unknown output index", http.MethodGet, "/api/v1/nodes/" + thresh + "/outputs/9", nil, http.StatusNotFound},
		{"bad index", http.MethodGet, "/api/v1/nodes/" + thresh + "/outputs/x", nil, http.StatusBadRequest},
		{"unknown type", http.MethodPost, "/api/v1/nodes", map[string]any{"type": "Blur"}, http.StatusUnprocessableEntity},
		{"missing type", http.MethodPost, "/api/v1/nodes", map[string]any{}, http.StatusBadRequest},
		{"cycle", http.MethodPost, "/api/v1/connections", map[string]any{"input_node": diff, "input_idx": 0, "output_node": thresh, "output_idx": 1}, http.StatusConflict},
		{"self loop", http.MethodPost, "/api/v1/connections", map[string]any{"input_node": diff, "input_idx": 0, "output_node": diff, "output_idx": 0}, http.StatusConflict},
		{"type mismatch", http.MethodPost, "/api/v1/connections", map[string]any{"input_node": diff, "input_idx": 0, "output_node": thresh, "output_idx": 0}, http.StatusUnprocessableEntity},
		{"out of range", http.MethodPut, "/api/v1/nodes/" + thresh + "/inputs/1", map[string]any{"value": 400}, http.StatusUnprocessableEntity},
		{"invalid choice", http.MethodPut, "/api/v1/nodes/" + thresh + "/inputs/3", map[string]any{"value": "Adaptive"}, http.StatusUnprocessableEntity},
		{"wrong json type", http.MethodPut, "/api/v1/nodes/" + thresh + "/inputs/1", map[string]any{"value": "ten"}, http.StatusBadRequest},
		{"image input as json", http.MethodPut, "/api/v1/nodes/" + thresh + "/inputs/0", map[string]any{"value": 1}, http.StatusUnprocessableEntity},
		{"invalid snapshot name", http.MethodPut, "/api/v1/snapshots/-bad", nil, http.StatusUnprocessableEntity},
		{"missing snapshot", http.MethodGet, "/api/v1/snapshots/absent", nil, http.StatusNotFound},
		{"negative offset", http.MethodPut, "/api/v1/nodes/" + src + "/inputs/0", map[string]any{"value": -1}, http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.request(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
			var body map[string]string
			h.decode(resp, &body)
			assert.NotEmpty(t, body["error"])
		})
	}

	t.Run("rejected connection leaves the graph unchanged", func(t *testing.T) {
		resp := h.request(http.MethodGet, "/api/v1/connections", nil)
		var conns []map[string]any
		h.decode(resp, &conns)
		assert.Len(t, conns, 3)
	})
}

func TestAPI_NodeLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.createNode("InvertGray", nil)

	resp := h.request(http.MethodPatch, "/api/v1/nodes/"+id, map[string]any{"label": "inv", "position": map[string]any{"x": 4, "y": 5}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view nodeView
	h.decode(resp, &view)
	assert.Equal(t, "inv", view.Label)
	assert.Equal(t, "stale", view.State)
	assert.Equal(t, 4.0, view.Position.X)
	require.Len(t, view.Inputs, 1)
	assert.Equal(t, "gray_image", view.Inputs[0].Kind)

	t.Run("image manual value from a PNG body", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, frame(10)))
		req := httptest.NewRequest(http.MethodPut, "/api/v1/nodes/"+id+"/inputs/0", &buf)
		req.Header.Set("Content-Type", "image/png")
		resp, err := h.server.App().Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		out := h.request(http.MethodGet, "/api/v1/nodes/"+id+"/outputs/0", nil)
		img, err := png.Decode(out.Body)
		require.NoError(t, err)
		assert.Equal(t, uint8(245), img.(*image.Gray).Pix[0])
	})

	resp = h.request(http.MethodGet, "/api/v1/nodes", nil)
	var views []nodeView
	h.decode(resp, &views)
	assert.Len(t, views, 1)

	resp = h.request(http.MethodDelete, "/api/v1/nodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.request(http.MethodDelete, "/api/v1/nodes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Snapshots(t *testing.T) {
	h := newHarness(t)
	_, _, thresh := h.pipeline()

	nodeIDs := func() []string {
		resp := h.request(http.MethodGet, "/api/v1/nodes", nil)
		var views []nodeView
		h.decode(resp, &views)
		ids := make([]string, len(views))
		for i, v := range views {
			ids[i] = v.ID
		}
		return ids
	}
	before := nodeIDs()

	resp := h.request(http.MethodPut, "/api/v1/snapshots/scene", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info snapshotstore.Info
	h.decode(resp, &info)
	assert.Equal(t, 3, info.Nodes)

	resp = h.request(http.MethodGet, "/api/v1/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// Replace the graph with an empty one, then load the stored scene back.
	resp = h.request(http.MethodPut, "/api/v1/snapshot", map[string]any{"nodes": map[string]any{}})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.request(http.MethodGet, "/api/v1/nodes", nil)
	var views []nodeView
	h.decode(resp, &views)
	assert.Empty(t, views)

	resp = h.request(http.MethodPost, "/api/v1/snapshots/scene/load", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.request(http.MethodGet, "/api/v1/nodes/"+thresh+"/outputs/1?format=json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "ids survive the round trip")

	assert.Equal(t, before, nodeIDs(), "node order survives the round trip")

	resp = h.request(http.MethodGet, "/api/v1/snapshot", nil)
	restored, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, string(current), string(restored))

	resp = h.request(http.MethodGet, "/api/v1/snapshots", nil)
	var infos []snapshotstore.Info
	h.decode(resp, &infos)
	require.Len(t, infos, 1)
	assert.Equal(t, "scene", infos[0].Name)

	resp = h.request(http.MethodPut, "/api/v1/snapshot", map[string]any{"version": 99})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.request(http.MethodDelete, "/api/v1/snapshots/scene", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	_, _, thresh := h.pipeline()
	h.request(http.MethodGet, "/api/v1/nodes/"+thresh+"/outputs/0", nil)

	resp := h.request(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.request(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `framegraph_node_evaluations_total{result="ok",type="Threshold"} 1`)

	resp = h.request(http.MethodGet, "/api/v1/node-types", nil)
	var types []nodeTypeView
	h.decode(resp, &types)
	require.NotEmpty(t, types)
	var source nodeTypeView
	for _, nt := range types {
		if nt.Type == frames.TypeSource {
			source = nt
		}
	}
	require.Len(t, source.Params, 1)
	assert.Equal(t, "n_frames", source.Params[0].Name)
}

func TestAPI_SnapshotKeepsNodeOrder(t *testing.T) {
	// --- Arrange ---
	// Graph order is the reverse of id order.
	h := newHarness(t)
	doc := map[string]any{
		"version": 1,
		"order":   []string{"z-invert", "m-invert", "a-source"},
		"nodes": map[string]any{
			"a-source": map[string]any{"type_name": frames.TypeSource, "ctor_params": map[string]any{"n_frames": 1}},
			"m-invert": map[string]any{"type_name": "InvertGray"},
			"z-invert": map[string]any{"type_name": "InvertGray"},
		},
		"connections": []map[string]any{
			{"input_node": "z-invert", "input_idx": 0, "output_node": "m-invert", "output_idx": 0},
			{"input_node": "m-invert", "input_idx": 0, "output_node": "a-source", "output_idx": 0},
		},
	}

	// --- Act ---
	resp := h.request(http.MethodPut, "/api/v1/snapshot", doc)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.request(http.MethodGet, "/api/v1/nodes", nil)
	var views []nodeView
	h.decode(resp, &views)

	// --- Assert ---
	require.Len(t, views, 3)
	assert.Equal(t, []string{"z-invert", "m-invert", "a-source"}, []string{views[0].ID, views[1].ID, views[2].ID})

	resp = h.request(http.MethodGet, "/api/v1/snapshot", nil)
	var got struct {
		Order       []string         `json:"order"`
		Connections []map[string]any `json:"connections"`
	}
	h.decode(resp, &got)
	assert.Equal(t, []string{"z-invert", "m-invert", "a-source"}, got.Order)
	require.Len(t, got.Connections, 2)
	assert.Equal(t, "z-invert", got.Connections[0]["input_node"], "connections follow graph order")
}
