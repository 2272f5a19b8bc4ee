package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smelter/internal/audiomixer"
	"smelter/internal/decoder"
	"smelter/internal/encoder"
	"smelter/internal/frame"
	"smelter/internal/ids"
	"smelter/internal/pipeline"
	"smelter/internal/queue"
	"smelter/internal/scene"
	"smelter/internal/stats"
)

// fakeInputFactory stashes the last decoder.VideoWorker it built so a test
// can push an explicit EOS before unregistering, the same way
// internal/pipeline's own tests must (the worker's Run loop is the only
// thing that turns an input EOS into an Out() EOS the forwarder observes).
type fakeInputFactory struct {
	lastWorker *decoder.VideoWorker
}

func (f *fakeInputFactory) BuildInput(id ids.InputId, req InputRegisterRequest) (queue.InputOptions, *decoder.VideoWorker, *decoder.AudioWorker, error) {
	variant, err := decoder.NewH264Variant(func(chunk frame.EncodedInputChunk) ([]frame.Frame, error) {
		return []frame.Frame{{Pts: chunk.Pts}}, nil
	})
	if err != nil {
		return queue.InputOptions{}, nil, nil, err
	}
	worker := decoder.NewVideoWorker(string(id), variant, nil, stats.NewRegistry().For(string(id)), nil, nil, 4, 4)
	go worker.Run(context.Background())
	f.lastWorker = worker
	return queue.InputOptions{Required: req.Required}, worker, nil, nil
}

type fakeGPUBackend struct{}

func (fakeGPUBackend) Render(root scene.Node, bound map[ids.InputId]*frame.Frame, res frame.Resolution, format frame.PixelFormat) (frame.Frame, error) {
	return frame.Frame{Resolution: res, Format: format}, nil
}
func (fakeGPUBackend) Crossfade(a, b frame.Frame, weight float64) (frame.Frame, error) { return b, nil }

type discardSink struct{ closed bool }

func (d *discardSink) WriteVideo(frame.EncodedOutputChunk) error { return nil }
func (d *discardSink) WriteAudio(frame.EncodedOutputChunk) error { return nil }
func (d *discardSink) Close()                                    { d.closed = true }

type fakeOutputFactory struct{}

func (fakeOutputFactory) BuildOutput(id ids.OutputId, req OutputRegisterRequest, initial scene.Scene) (*scene.Store, *scene.Renderer, *audiomixer.Mixer, *encoder.VideoWorker, *encoder.AudioWorker, pipeline.ChunkSink, error) {
	store := scene.NewStore(initial)
	renderer := scene.NewRenderer(store, fakeGPUBackend{})
	variant, err := encoder.NewH264Variant(func(f frame.Frame, force bool) (frame.EncodedOutputChunk, error) {
		return frame.EncodedOutputChunk{Pts: f.Pts, IsKeyframe: force}, nil
	})
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	videoEnc := encoder.NewVideoWorker(string(id)+"-video", variant, nil, stats.NewRegistry().For(string(id)), 0, 4, 4)
	return store, renderer, nil, videoEnc, nil, &discardSink{}, nil
}

func newTestServer() (*Server, *fakeInputFactory) {
	p := pipeline.New(nil, 4, 4)
	inputs := &fakeInputFactory{}
	return NewServer(p, inputs, fakeOutputFactory{}, stats.NewBus(nil), stats.NewRegistry(), nil), inputs
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleInputRegisterRejectsUnknownField(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/input/cam-1/register", bytes.NewReader([]byte(`{"required":true,"bogus_field":1}`)))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown field, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStartThenRegisterInputThenUnregister(t *testing.T) {
	s, inputFactory := newTestServer()
	if rec := doRequest(t, s, http.MethodPost, "/api/start", nil); rec.Code != http.StatusOK {
		t.Fatalf("start failed: %d %s", rec.Code, rec.Body.String())
	}

	rec := doRequest(t, s, http.MethodPost, "/api/input/cam-1/register", InputRegisterRequest{Required: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("register input failed: %d %s", rec.Code, rec.Body.String())
	}

	if _, ok := s.pipeline.Ctx.Inputs.Get("cam-1"); !ok {
		t.Fatalf("expected input to be registered")
	}

	// Let the worker's Run loop observe EOS so the forwarder goroutine
	// returns; UnregisterInput's wait() would otherwise block forever.
	inputFactory.lastWorker.In() <- frame.EOS[frame.EncodedInputChunk]()

	rec = doRequest(t, s, http.MethodPost, "/api/input/cam-1/unregister", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unregister input failed: %d %s", rec.Code, rec.Body.String())
	}
	if _, ok := s.pipeline.Ctx.Inputs.Get("cam-1"); ok {
		t.Fatalf("expected input to be unregistered")
	}
}

func TestHandleOutputRegisterRequestKeyframeAndUnregister(t *testing.T) {
	s, _ := newTestServer()
	doRequest(t, s, http.MethodPost, "/api/start", nil)

	registerReq := OutputRegisterRequest{
		InitialScene: SceneSpec{
			Root:       SceneNodeSpec{Kind: "input_stream", Input: "cam-1"},
			Resolution: ResolutionSpec{Width: 640, Height: 480},
		},
		EndCondition: EndConditionSpec{Kind: "never"},
		Framerate:    30,
	}
	rec := doRequest(t, s, http.MethodPost, "/api/output/out-1/register", registerReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("register output failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodPost, "/api/output/out-1/request_keyframe", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("request keyframe failed: %d %s", rec.Code, rec.Body.String())
	}

	time.Sleep(10 * time.Millisecond)

	rec = doRequest(t, s, http.MethodPost, "/api/output/out-1/unregister", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unregister output failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandleOutputUpdateRejectsUnknownOutput(t *testing.T) {
	s, _ := newTestServer()
	doRequest(t, s, http.MethodPost, "/api/start", nil)

	rec := doRequest(t, s, http.MethodPost, "/api/output/missing/update", UpdateSceneRequest{
		Scene: SceneSpec{Root: SceneNodeSpec{Kind: "input_stream", Input: "cam-1"}},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unregistered output, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStatusListsRegisteredIds(t *testing.T) {
	s, _ := newTestServer()
	doRequest(t, s, http.MethodPost, "/api/start", nil)
	doRequest(t, s, http.MethodPost, "/api/input/cam-1/register", InputRegisterRequest{})

	rec := doRequest(t, s, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if _, ok := resp.Inputs["cam-1"]; !ok {
		t.Fatalf("expected cam-1 in status response, got %+v", resp)
	}
}
