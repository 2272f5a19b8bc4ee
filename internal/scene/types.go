// Package scene implements the scene tree and renderer tick (§4.5): an
// atomically-swapped immutable tree of layout/compositing nodes, bound to
// one aligned frame set per output tick and evaluated on a GPU backend.
//
// Grounded on other_examples/21b8ffbe_IntuitionAmiga-IntuitionEngine's
// video_compositor.go for the layered-sources-blended-into-one-output-frame
// shape (VideoCompositor.composite/blendFrame); the tree-of-typed-nodes
// layout model and atomic whole-tree swap are new, generalized from that
// single-layer-list compositor to the node kinds Smelter's scenes need
// (rescaler, tiles, view, text, shader, image, web).
package scene

import (
	"smelter/internal/frame"
	"smelter/internal/ids"
)

// NodeKind tags which of the scene node variants a Node carries.
type NodeKind int

const (
	NodeInputStream NodeKind = iota
	NodeRescaler
	NodeTiles
	NodeView
	NodeText
	NodeShader
	NodeImage
	NodeWeb
)

// Node is one element of a scene tree. Only the fields relevant to Kind are
// meaningful; the tree is built once and never mutated in place (§4.5 step 1
// "immutable tree").
type Node struct {
	Kind NodeKind

	// NodeInputStream: which input's bound frame this leaf renders.
	Input ids.InputId

	// NodeRescaler / NodeView: target resolution for this subtree.
	Resolution frame.Resolution

	// NodeTiles / NodeView: child nodes, in z/layout order.
	Children []Node

	// NodeText: literal text content (rendering is an external GPU/font
	// concern; Smelter only carries the content).
	Text string

	// NodeShader / NodeImage / NodeWeb: opaque resource identifier resolved
	// by the external renderer (shader program name, image asset path, web
	// renderer session id).
	Resource string
}

// InputStream returns the set of input ids referenced by leaves in the tree,
// used to decide which frame-set entries must be bound (§4.5 step 2).
func (n Node) InputStream() []ids.InputId {
	var out []ids.InputId
	var walk func(Node)
	walk = func(cur Node) {
		if cur.Kind == NodeInputStream {
			out = append(out, cur.Input)
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Scene is one immutable tree plus the output parameters it was built for.
type Scene struct {
	Root       Node
	Resolution frame.Resolution
	Format     frame.PixelFormat
}
