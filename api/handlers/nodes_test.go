package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/api"
	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/llm/image/kling"
	"github.com/BaSui01/klingflow/nodes"
	"github.com/BaSui01/klingflow/types"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

type fakeGenerator struct {
	req   *image.GenerateRequest
	creds kling.Credentials
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, creds kling.Credentials, req *image.GenerateRequest) (*image.Batch, error) {
	g.calls++
	g.req = req
	g.creds = creds
	if g.err != nil {
		return nil, g.err
	}
	// 2x1 的纯红图像，按请求数量堆叠
	frames := make([]*image.Tensor, req.N)
	for i := range frames {
		frames[i] = &image.Tensor{Height: 1, Width: 2, Channels: 3, Data: []float32{1, 0, 0, 1, 0, 0}}
	}
	batch, err := image.Stack(frames)
	if err != nil {
		return nil, err
	}
	batch.Seed = req.Seed
	return batch, nil
}

func newNodeMux(gen nodes.Generator) *http.ServeMux {
	h := NewNodeHandler(nodes.DefaultRegistry(), nodes.Deps{
		Generator:          gen,
		DefaultCredentials: kling.Credentials{AccessKey: "cfg-ak", SecretKey: "cfg-sk"},
	}, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/nodes", h.HandleListNodes)
	mux.HandleFunc("GET /api/v1/nodes/{name}", h.HandleGetNode)
	mux.HandleFunc("POST /api/v1/nodes/{name}/invoke", h.HandleInvokeNode)
	return mux
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) (Response, T) {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	var data T
	if len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, &data))
	}
	return raw.Response, data
}

func invoke(mux http.Handler, name, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/nodes/"+name+"/invoke", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	mux.ServeHTTP(w, r)
	return w
}

// =============================================================================
// 🧪 NodeHandler 测试
// =============================================================================

func TestNodeHandler_ListNodes(t *testing.T) {
	mux := newNodeMux(&fakeGenerator{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp, list := decodeData[[]api.NodeInfo](t, w)
	assert.True(t, resp.Success)
	require.Len(t, list, 1)
	assert.Equal(t, nodes.KlingText2ImageName, list[0].Name)
	assert.Equal(t, nodes.CategoryKling, list[0].Category)
	assert.Equal(t, []string{"IMAGE"}, list[0].ReturnTypes)

	byName := map[string]api.NodeParam{}
	for _, p := range list[0].Params {
		byName[p.Name] = p
	}
	assert.True(t, byName["prompt"].Required)
	assert.False(t, byName["image_fidelity"].Required)
	assert.True(t, byName["secret_key"].Password)
	require.NotNil(t, byName["batch_size"].Max)
	assert.Equal(t, float64(image.MaxBatchSize), *byName["batch_size"].Max)
}

func TestNodeHandler_GetNode(t *testing.T) {
	mux := newNodeMux(&fakeGenerator{})

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nodes/"+nodes.KlingText2ImageName, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		_, info := decodeData[api.NodeInfo](t, w)
		assert.Equal(t, nodes.KlingText2ImageName, info.Name)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nodes/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		resp, _ := decodeData[json.RawMessage](t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, string(types.ErrNodeNotFound), resp.Error.Code)
	})
}

func TestNodeHandler_InvokeNode(t *testing.T) {
	gen := &fakeGenerator{}
	mux := newNodeMux(gen)

	w := invoke(mux, nodes.KlingText2ImageName, `{"params":{
		"prompt":"a red square",
		"batch_size":2,
		"seed":123456789,
		"aspect_ratio":"16:9",
		"image_fidelity":0.25
	}}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp, out := decodeData[api.InvokeResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, nodes.KlingText2ImageName, out.Node)
	assert.Equal(t, int64(123456789), out.Seed)
	assert.Equal(t, [4]int{2, 1, 2, 3}, out.Shape)
	require.Len(t, out.Images, 2)

	for i, img := range out.Images {
		assert.Equal(t, i, img.Index)
		assert.Equal(t, 2, img.Width)
		assert.Equal(t, 1, img.Height)
		raw, err := base64.StdEncoding.DecodeString(img.PNGBase64)
		require.NoError(t, err)
		decoded, err := image.DecodeRGB(strings.NewReader(string(raw)))
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0, 1, 0, 0}, decoded.Data)
	}

	require.Equal(t, 1, gen.calls)
	assert.Equal(t, "a red square", gen.req.Prompt)
	assert.Equal(t, "16:9", gen.req.AspectRatio)
	assert.InDelta(t, 0.25, gen.req.ImageFidelity, 1e-9)
	assert.Equal(t, kling.Credentials{AccessKey: "cfg-ak", SecretKey: "cfg-sk"}, gen.creds)
}

func TestNodeHandler_InvokeNodeErrors(t *testing.T) {
	tests := []struct {
		name       string
		node       string
		body       string
		genErr     error
		wantStatus int
		wantCode   types.ErrorCode
		wantCalls  int
	}{
		{
			name:       "unknown node",
			node:       "nope",
			body:       `{"params":{}}`,
			wantStatus: http.StatusNotFound,
			wantCode:   types.ErrNodeNotFound,
		},
		{
			name:       "malformed body",
			node:       nodes.KlingText2ImageName,
			body:       `{"params":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "batch size out of range",
			node:       nodes.KlingText2ImageName,
			body:       `{"params":{"prompt":"x","batch_size":10}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "unknown parameter",
			node:       nodes.KlingText2ImageName,
			body:       `{"params":{"steps":20}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "task failed upstream",
			node:       nodes.KlingText2ImageName,
			body:       `{"params":{"prompt":"x"}}`,
			genErr:     types.NewError(types.ErrTaskFailed, "content rejected"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   types.ErrTaskFailed,
			wantCalls:  1,
		},
		{
			name:       "poll timeout",
			node:       nodes.KlingText2ImageName,
			body:       `{}`,
			genErr:     types.NewError(types.ErrPollTimeout, "task did not finish"),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   types.ErrPollTimeout,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tt.genErr}
			w := invoke(newNodeMux(gen), tt.node, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp, _ := decodeData[json.RawMessage](t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
			assert.Equal(t, tt.wantCalls, gen.calls)
		})
	}
}

func TestNodeHandler_InvokeRequiresJSON(t *testing.T) {
	gen := &fakeGenerator{}
	mux := newNodeMux(gen)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/nodes/"+nodes.KlingText2ImageName+"/invoke", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Zero(t, gen.calls)
}

func TestExtractNodeName_Fallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/nodes/Kling_v1_5_T2I/invoke", nil)
	assert.Equal(t, "Kling_v1_5_T2I", extractNodeName(r))

	r = httptest.NewRequest(http.MethodGet, "/api/v1/nodes/Kling_v1_5_T2I", nil)
	assert.Equal(t, "Kling_v1_5_T2I", extractNodeName(r))
}
