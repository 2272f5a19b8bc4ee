// Package api implements the control API (§6): HTTP/JSON endpoints that
// deserialize into the §3 data model and drive an internal/pipeline.Pipeline.
// Scene-description parsing beyond the tree shape already defined in §3,
// GPU shader authoring, and wire-protocol framing stay external
// collaborators (§1); this package owns only the contract surface —
// routing, deserialization, unknown-field rejection, and calls into
// internal/pipeline — not codec or transport construction, which an
// InputFactory/OutputFactory implementation supplies.
//
// Grounded on the teacher's JSON-shaped request handling idiom (strict
// decode, structured error responses) and routed with gorilla/mux, the
// same router other_examples repos in the pack use for comparable
// JSON control surfaces.
package api

import (
	"fmt"

	"smelter/internal/frame"
	"smelter/internal/ids"
	"smelter/internal/pipeline"
)

// OkResponse is the success envelope for every control endpoint (§6:
// `{"type":"ok"}`).
type OkResponse struct {
	Type string `json:"type"`
}

func ok() OkResponse { return OkResponse{Type: "ok"} }

// ErrorResponse is the failure envelope for every control endpoint (§6:
// "an error object with a code and message").
type ErrorResponse struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errResponse(code, message string) ErrorResponse {
	return ErrorResponse{Type: "error", Code: code, Message: message}
}

// ResolutionSpec is the wire shape of frame.Resolution.
type ResolutionSpec struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r ResolutionSpec) toResolution() frame.Resolution {
	return frame.Resolution{Width: r.Width, Height: r.Height}
}

// SceneNodeSpec is the wire shape of one scene.Node (§3 "Scene").
type SceneNodeSpec struct {
	Kind       string          `json:"kind"`
	Input      string          `json:"input,omitempty"`
	Resolution *ResolutionSpec `json:"resolution,omitempty"`
	Children   []SceneNodeSpec `json:"children,omitempty"`
	Text       string          `json:"text,omitempty"`
	Resource   string          `json:"resource,omitempty"`
}

// SceneSpec is the wire shape of scene.Scene, carried by OutputRegisterRequest
// and UpdateSceneRequest.
type SceneSpec struct {
	Root       SceneNodeSpec  `json:"root"`
	Resolution ResolutionSpec `json:"resolution"`
	Format     string         `json:"format"`
}

// EndConditionSpec is the wire shape of pipeline.EndCondition (§3
// OutputRegistration.end_condition, §4.7).
type EndConditionSpec struct {
	Kind   string   `json:"kind"`
	Inputs []string `json:"inputs,omitempty"`
}

func (e EndConditionSpec) toEndCondition() (pipeline.EndCondition, error) {
	var kind pipeline.EndConditionKind
	switch e.Kind {
	case "any_of":
		kind = pipeline.EndAnyOf
	case "all_of":
		kind = pipeline.EndAllOf
	case "any_input":
		kind = pipeline.EndAnyInput
	case "all_inputs":
		kind = pipeline.EndAllInputs
	case "never", "":
		kind = pipeline.EndNever
	default:
		return pipeline.EndCondition{}, fmt.Errorf("unknown end_condition kind %q", e.Kind)
	}
	inputs := make([]ids.InputId, 0, len(e.Inputs))
	for _, raw := range e.Inputs {
		id, err := ids.NewInputId(raw)
		if err != nil {
			return pipeline.EndCondition{}, err
		}
		inputs = append(inputs, id)
	}
	return pipeline.EndCondition{Kind: kind, Inputs: inputs}, nil
}

// InputRegisterRequest is the request body of POST /api/input/{id}/register
// (§3 InputRegistration).
type InputRegisterRequest struct {
	Required         bool           `json:"required"`
	OffsetMs         *int64         `json:"offset_ms,omitempty"`
	BufferDurationMs *int64         `json:"buffer_duration_ms,omitempty"`
	StaleWindowMs    int64          `json:"stale_window_ms,omitempty"`
	Protocol         string         `json:"protocol"`
	ProtocolOptions  map[string]any `json:"protocol_options,omitempty"`
}

// OutputRegisterRequest is the request body of POST /api/output/{id}/register
// (§3 OutputRegistration).
type OutputRegisterRequest struct {
	Transport       string         `json:"transport"`
	TransportOptions map[string]any `json:"transport_options,omitempty"`
	VideoEncoder    string         `json:"video_encoder,omitempty"`
	AudioEncoder    string         `json:"audio_encoder,omitempty"`
	InitialScene    SceneSpec      `json:"initial_scene"`
	EndCondition    EndConditionSpec `json:"end_condition"`
	Framerate       int            `json:"framerate,omitempty"`
}

// UpdateSceneRequest is the request body of POST /api/output/{id}/update
// (§4.5 scene swap / transition).
type UpdateSceneRequest struct {
	Scene      SceneSpec `json:"scene"`
	StartMs    int64     `json:"start_ms"`
	DurationMs int64     `json:"duration_ms"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Inputs  map[string]SnapshotSpec `json:"inputs"`
	Outputs map[string]SnapshotSpec `json:"outputs"`
}

// SnapshotSpec is the wire shape of stats.Snapshot.
type SnapshotSpec struct {
	FramesIn      int64 `json:"frames_in"`
	FramesOut     int64 `json:"frames_out"`
	FramesDropped int64 `json:"frames_dropped"`
	BytesIn       int64 `json:"bytes_in"`
	BytesOut      int64 `json:"bytes_out"`
	Errors        int64 `json:"errors"`
	LastPtsMs     int64 `json:"last_pts_ms"`
}
