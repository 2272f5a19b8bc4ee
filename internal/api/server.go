package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"smelter/internal/audiomixer"
	"smelter/internal/decoder"
	"smelter/internal/encoder"
	"smelter/internal/ids"
	"smelter/internal/pipeline"
	"smelter/internal/queue"
	"smelter/internal/scene"
	"smelter/internal/stats"
)

// InputFactory builds the decoder side of a newly registered input from
// its control-API request. It is the boundary where concrete transport
// and codec selection (RTP/WHIP/RTMP/HLS/MP4/SDI/V4L2, H.264/VP8/VP9/
// AAC/Opus) lives, kept external to this package per §1.
type InputFactory interface {
	BuildInput(id ids.InputId, req InputRegisterRequest) (queue.InputOptions, *decoder.VideoWorker, *decoder.AudioWorker, error)
}

// OutputFactory builds the render/mix/encode/sink side of a newly
// registered output from its control-API request.
type OutputFactory interface {
	BuildOutput(id ids.OutputId, req OutputRegisterRequest, initial scene.Scene) (*scene.Store, *scene.Renderer, *audiomixer.Mixer, *encoder.VideoWorker, *encoder.AudioWorker, pipeline.ChunkSink, error)
}

// Server implements the control API (§6) over one Pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	inputs   InputFactory
	outputs  OutputFactory
	bus      *stats.Bus
	counters *stats.Registry
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	router *mux.Router
}

// NewServer wires a control API router over p. counters is read by
// GET /api/status; bus backs GET /api/ws.
func NewServer(p *pipeline.Pipeline, inputs InputFactory, outputs OutputFactory, bus *stats.Bus, counters *stats.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{pipeline: p, inputs: inputs, outputs: outputs, bus: bus, counters: counters, log: log}
	s.router = mux.NewRouter()
	s.routes()
	return s
}

// ServeHTTP lets Server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/start", s.handleStart).Methods(http.MethodPost)
	s.router.HandleFunc("/api/reset", s.handleReset).Methods(http.MethodPost)
	s.router.HandleFunc("/api/input/{id}/register", s.handleInputRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/input/{id}/unregister", s.handleInputUnregister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/output/{id}/register", s.handleOutputRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/output/{id}/unregister", s.handleOutputUnregister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/output/{id}/update", s.handleOutputUpdate).Methods(http.MethodPost)
	s.router.HandleFunc("/api/output/{id}/request_keyframe", s.handleOutputRequestKeyframe).Methods(http.MethodPost)
	s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/ws", s.handleWebsocket).Methods(http.MethodGet)
}

// decodeStrict deserializes r's JSON body into v, rejecting unknown fields
// (§6: "unknown fields are rejected").
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeConfigError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errResponse("configuration", err.Error()))
}

func writeInitError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, errResponse("init", err.Error()))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pipeline.Start(s.ctx)
	writeJSON(w, http.StatusOK, ok())
}

// handleReset aborts the running pipeline and every registered input/output
// (§7 "Hard pipeline ... abort pipeline; ... caller may reset"), then
// starts a fresh run with an empty registry set.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	for _, id := range s.pipeline.Ctx.Inputs.Ids() {
		s.pipeline.UnregisterInput(id)
	}
	for _, id := range s.pipeline.Ctx.Outputs.Ids() {
		s.pipeline.UnregisterOutput(id)
	}
	s.pipeline.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pipeline.Start(s.ctx)
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) handleInputRegister(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	id, err := ids.NewInputId(rawID)
	if err != nil {
		writeConfigError(w, err)
		return
	}

	var req InputRegisterRequest
	if err := decodeStrict(r, &req); err != nil {
		writeConfigError(w, err)
		return
	}

	opts, video, audio, err := s.inputs.BuildInput(id, req)
	if err != nil {
		writeInitError(w, err)
		return
	}

	if _, err := s.pipeline.RegisterInput(id, opts, video, audio); err != nil {
		writeJSON(w, http.StatusConflict, errResponse("configuration", err.Error()))
		return
	}
	s.bus.Publish(stats.Event{Kind: stats.EventInputRegistered, InputId: string(id)})
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) handleInputUnregister(w http.ResponseWriter, r *http.Request) {
	id := ids.InputId(mux.Vars(r)["id"])
	s.pipeline.UnregisterInput(id)
	s.counters.Remove(string(id))
	s.bus.Publish(stats.Event{Kind: stats.EventInputUnregistered, InputId: string(id)})
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) handleOutputRegister(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	id, err := ids.NewOutputId(rawID)
	if err != nil {
		writeConfigError(w, err)
		return
	}

	var req OutputRegisterRequest
	if err := decodeStrict(r, &req); err != nil {
		writeConfigError(w, err)
		return
	}
	initial, err := req.InitialScene.toScene()
	if err != nil {
		writeConfigError(w, err)
		return
	}
	end, err := req.EndCondition.toEndCondition()
	if err != nil {
		writeConfigError(w, err)
		return
	}

	store, renderer, mixer, videoEnc, audioEnc, sink, err := s.outputs.BuildOutput(id, req, initial)
	if err != nil {
		writeInitError(w, err)
		return
	}

	if _, err := s.pipeline.RegisterOutput(id, store, renderer, mixer, videoEnc, audioEnc, sink, end, req.Framerate); err != nil {
		writeJSON(w, http.StatusConflict, errResponse("configuration", err.Error()))
		return
	}
	s.bus.Publish(stats.Event{Kind: stats.EventOutputRegistered, OutputId: string(id)})
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) handleOutputUnregister(w http.ResponseWriter, r *http.Request) {
	id := ids.OutputId(mux.Vars(r)["id"])
	s.pipeline.UnregisterOutput(id)
	s.counters.Remove(string(id))
	s.bus.Publish(stats.Event{Kind: stats.EventOutputUnregistered, OutputId: string(id)})
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) handleOutputUpdate(w http.ResponseWriter, r *http.Request) {
	id := ids.OutputId(mux.Vars(r)["id"])

	var req UpdateSceneRequest
	if err := decodeStrict(r, &req); err != nil {
		writeConfigError(w, err)
		return
	}
	next, err := req.Scene.toScene()
	if err != nil {
		writeConfigError(w, err)
		return
	}

	start := time.Duration(req.StartMs) * time.Millisecond
	duration := time.Duration(req.DurationMs) * time.Millisecond
	if err := s.pipeline.UpdateScene(id, next, start, duration); err != nil {
		writeJSON(w, http.StatusNotFound, errResponse("configuration", err.Error()))
		return
	}
	s.bus.Publish(stats.Event{Kind: stats.EventSceneUpdated, OutputId: string(id)})
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) handleOutputRequestKeyframe(w http.ResponseWriter, r *http.Request) {
	id := ids.OutputId(mux.Vars(r)["id"])
	if err := s.pipeline.RequestKeyframe(id); err != nil {
		writeJSON(w, http.StatusNotFound, errResponse("configuration", err.Error()))
		return
	}
	s.bus.Publish(stats.Event{Kind: stats.EventKeyframeRequested, OutputId: string(id)})
	writeJSON(w, http.StatusOK, ok())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshots := s.counters.SnapshotAll()
	resp := StatusResponse{Inputs: map[string]SnapshotSpec{}, Outputs: map[string]SnapshotSpec{}}
	for _, id := range s.pipeline.Ctx.Inputs.Ids() {
		resp.Inputs[string(id)] = toSnapshotSpec(snapshots[string(id)])
	}
	for _, id := range s.pipeline.Ctx.Outputs.Ids() {
		resp.Outputs[string(id)] = toSnapshotSpec(snapshots[string(id)])
	}
	writeJSON(w, http.StatusOK, resp)
}

func toSnapshotSpec(s stats.Snapshot) SnapshotSpec {
	return SnapshotSpec{
		FramesIn:      s.FramesIn,
		FramesOut:     s.FramesOut,
		FramesDropped: s.FramesDropped,
		BytesIn:       s.BytesIn,
		BytesOut:      s.BytesOut,
		Errors:        s.Errors,
		LastPtsMs:     s.LastPts.Milliseconds(),
	}
}
