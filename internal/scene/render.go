package scene

import (
	"fmt"
	"time"

	"smelter/internal/frame"
	"smelter/internal/ids"
)

// GPUBackend evaluates a bound scene tree into one output frame. It is the
// external-collaborator boundary (§1 excludes shader/GPU authoring from
// scope): Smelter owns the tree and binding, the backend owns rasterizing
// tiles/rescalers/views/text/shaders/images/web content onto a texture.
type GPUBackend interface {
	// Render evaluates root with bound leaf frames at the given output
	// resolution/format (§4.5 step 3: "evaluates layout ... on the GPU").
	Render(root Node, bound map[ids.InputId]*frame.Frame, res frame.Resolution, format frame.PixelFormat) (frame.Frame, error)
	// Crossfade blends two already-rendered frames by weight in [0,1], 0
	// meaning fully a and 1 meaning fully b (§4.5 transition interpolation).
	Crossfade(a, b frame.Frame, weight float64) (frame.Frame, error)
}

// BlackFrame returns a zeroed placeholder frame at the given resolution,
// used to bind missing inputs (§4.5 step 2: "missing inputs bind to a black
// texture of the node's resolution").
func BlackFrame(res frame.Resolution) frame.Frame {
	ySize := res.Width * res.Height
	cSize := (res.Width / 2) * (res.Height / 2)
	return frame.Frame{
		Resolution: res,
		Format:     frame.PixelFormatYUV420P,
		Planes: [][]byte{
			make([]byte, ySize),
			make([]byte, cSize),
			make([]byte, cSize),
		},
		Strides: []int{res.Width, res.Width / 2, res.Width / 2},
	}
}

// Renderer runs the scene renderer tick (§4.5) for one output.
type Renderer struct {
	store   *Store
	backend GPUBackend

	transition *Transition
}

// NewRenderer constructs a Renderer over store, evaluated by backend.
func NewRenderer(store *Store, backend GPUBackend) *Renderer {
	return &Renderer{store: store, backend: backend}
}

// BeginTransition starts a crossfade from the store's current scene to next,
// lasting duration starting at wall-clock pts start.
func (r *Renderer) BeginTransition(next Scene, start, duration time.Duration) {
	from := r.store.Swap(next)
	r.transition = &Transition{From: from, To: next, Start: start, Duration: duration}
}

// Tick produces exactly one output frame at pts t, binding boundFrames (the
// aligned frame-set entries keyed by input id) to the current scene's
// input-stream leaves (§4.5 steps 2-4).
func (r *Renderer) Tick(t time.Duration, boundFrames map[ids.InputId]*frame.Frame) (frame.Frame, error) {
	if r.backend == nil {
		return frame.Frame{}, fmt.Errorf("scene: no GPU backend configured")
	}

	cur := r.store.Load()
	bound := bindOrBlack(cur.Root, boundFrames, cur.Resolution)

	if r.transition != nil && r.transition.Active(t) {
		fromBound := bindOrBlack(r.transition.From.Root, boundFrames, r.transition.From.Resolution)
		fromFrame, err := r.backend.Render(r.transition.From.Root, fromBound, cur.Resolution, cur.Format)
		if err != nil {
			return frame.Frame{}, err
		}
		toFrame, err := r.backend.Render(cur.Root, bound, cur.Resolution, cur.Format)
		if err != nil {
			return frame.Frame{}, err
		}
		out, err := r.backend.Crossfade(fromFrame, toFrame, r.transition.Weight(t))
		out.Pts = t
		return out, err
	}
	if r.transition != nil && !r.transition.Active(t) {
		// Transition window elapsed: drop the "from" scene (§4.5).
		r.transition = nil
	}

	out, err := r.backend.Render(cur.Root, bound, cur.Resolution, cur.Format)
	out.Pts = t
	return out, err
}

// bindOrBlack resolves each input-stream leaf in root to its frame-set
// entry, substituting a black frame of the tree's output resolution for any
// input missing from boundFrames or bound to a nil frame (§4.5 step 2).
func bindOrBlack(root Node, boundFrames map[ids.InputId]*frame.Frame, res frame.Resolution) map[ids.InputId]*frame.Frame {
	out := map[ids.InputId]*frame.Frame{}
	for _, id := range root.InputStream() {
		if f, ok := boundFrames[id]; ok && f != nil {
			out[id] = f
			continue
		}
		black := BlackFrame(res)
		out[id] = &black
	}
	return out
}
