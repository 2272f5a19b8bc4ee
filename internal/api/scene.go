package api

import (
	"fmt"

	"smelter/internal/frame"
	"smelter/internal/ids"
	"smelter/internal/scene"
)

func pixelFormatFromString(s string) (frame.PixelFormat, error) {
	switch s {
	case "", "yuv420p":
		return frame.PixelFormatYUV420P, nil
	case "nv12":
		return frame.PixelFormatNV12, nil
	case "rgba":
		return frame.PixelFormatRGBA, nil
	case "gpu_texture":
		return frame.PixelFormatGPUTexture, nil
	default:
		return 0, fmt.Errorf("unknown scene format %q", s)
	}
}

func nodeKindFromString(s string) (scene.NodeKind, error) {
	switch s {
	case "input_stream":
		return scene.NodeInputStream, nil
	case "rescaler":
		return scene.NodeRescaler, nil
	case "tiles":
		return scene.NodeTiles, nil
	case "view":
		return scene.NodeView, nil
	case "text":
		return scene.NodeText, nil
	case "shader":
		return scene.NodeShader, nil
	case "image":
		return scene.NodeImage, nil
	case "web":
		return scene.NodeWeb, nil
	default:
		return 0, fmt.Errorf("unknown scene node kind %q", s)
	}
}

func (n SceneNodeSpec) toNode() (scene.Node, error) {
	kind, err := nodeKindFromString(n.Kind)
	if err != nil {
		return scene.Node{}, err
	}
	node := scene.Node{Kind: kind, Text: n.Text, Resource: n.Resource}
	if n.Input != "" {
		id, err := ids.NewInputId(n.Input)
		if err != nil {
			return scene.Node{}, err
		}
		node.Input = id
	}
	if n.Resolution != nil {
		node.Resolution = n.Resolution.toResolution()
	}
	if len(n.Children) > 0 {
		node.Children = make([]scene.Node, len(n.Children))
		for i, c := range n.Children {
			child, err := c.toNode()
			if err != nil {
				return scene.Node{}, fmt.Errorf("child %d: %w", i, err)
			}
			node.Children[i] = child
		}
	}
	return node, nil
}

// toScene converts the wire SceneSpec into a scene.Scene (§3 "Scene").
// This is the full extent of scene-description parsing this package
// performs: a structural tree decode, not the declarative DSL §1 excludes.
func (s SceneSpec) toScene() (scene.Scene, error) {
	root, err := s.Root.toNode()
	if err != nil {
		return scene.Scene{}, fmt.Errorf("root: %w", err)
	}
	format, err := pixelFormatFromString(s.Format)
	if err != nil {
		return scene.Scene{}, err
	}
	return scene.Scene{Root: root, Resolution: s.Resolution.toResolution(), Format: format}, nil
}
