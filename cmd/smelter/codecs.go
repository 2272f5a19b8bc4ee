package main

// Registers the cgo-free media-sdk audio codecs (G.711, G.722, DTMF) so
// mediaFactory.lookupAudioCodec/msdk.EnabledCodecs has something to find
// without a build tag. Grounded on bridge/lk_codecs.go: media-sdk codecs
// self-register via init() when their package is imported for side
// effects only.
import (
	_ "github.com/livekit/media-sdk/dtmf"
	_ "github.com/livekit/media-sdk/g711"
	_ "github.com/livekit/media-sdk/g722"
)
