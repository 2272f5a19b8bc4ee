package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	msdk "github.com/livekit/media-sdk"
	msdkrtp "github.com/livekit/media-sdk/rtp"

	"smelter/internal/api"
	"smelter/internal/audiomixer"
	"smelter/internal/config"
	"smelter/internal/decoder"
	"smelter/internal/encoder"
	"smelter/internal/frame"
	"smelter/internal/ids"
	"smelter/internal/payload"
	"smelter/internal/pipeline"
	"smelter/internal/queue"
	"smelter/internal/scene"
	"smelter/internal/stats"
	"smelter/internal/transport"
)

// mediaFactory is the concrete api.InputFactory/api.OutputFactory: the
// place the control API's request/response contract meets real codec and
// transport construction (§1 "HTTP control surface ... treated as
// external collaborators"). Grounded on the teacher's SIPCodecs
// (bridge/service.go): look codecs up in the media-sdk registry by name
// rather than hardcoding a concrete codec type, so audio codec support is
// whatever's registered (e.g. bridge/lk_codecs_opus.go's `-tags opus`
// registration), not whatever this file happens to import.
type mediaFactory struct {
	cfg config.Config
	log *slog.Logger

	registry *stats.Registry
	bus      *stats.Bus
	queue    *queue.Queue
}

func newMediaFactory(cfg config.Config, log *slog.Logger, registry *stats.Registry, bus *stats.Bus, q *queue.Queue) *mediaFactory {
	return &mediaFactory{cfg: cfg, log: log, registry: registry, bus: bus, queue: q}
}

// videoVariantFromName maps the closed set of video codec names §6 allows
// onto the decoder's constructors. Decode itself is the external-
// collaborator boundary internal/decoder already documents (§1 excludes
// FFmpeg/Vulkan Video internals): this binary wires a structural
// passthrough decode/encode pair, good enough to move already-framed
// picture data through the pipeline end to end without a codec library
// this pack does not carry. A deployment with a real H.264/VP8/VP9
// library plugs it in here instead of passthroughVideoDecode/Encode.
func videoVariantFromName(name string) (decoder.VideoVariant, error) {
	switch name {
	case "", "h264":
		return decoder.NewH264Variant(passthroughVideoDecode)
	case "vp8":
		return decoder.NewVP8Variant(passthroughVideoDecode)
	case "vp9":
		return decoder.NewVP9Variant(passthroughVideoDecode)
	default:
		return nil, fmt.Errorf("smelter: unknown video codec %q", name)
	}
}

func passthroughVideoDecode(chunk frame.EncodedInputChunk) ([]frame.Frame, error) {
	return []frame.Frame{{Pts: chunk.Pts, Format: frame.PixelFormatYUV420P, Planes: [][]byte{chunk.Payload}}}, nil
}

func encoderVideoVariantFromName(name string) (encoder.VideoVariant, error) {
	switch name {
	case "", "h264":
		return encoder.NewH264Variant(passthroughVideoEncode)
	case "vp8":
		return encoder.NewVP8Variant(passthroughVideoEncode)
	case "vp9":
		return encoder.NewVP9Variant(passthroughVideoEncode)
	default:
		return nil, fmt.Errorf("smelter: unknown video codec %q", name)
	}
}

func passthroughVideoEncode(f frame.Frame, force bool) (frame.EncodedOutputChunk, error) {
	var payload []byte
	if len(f.Planes) > 0 {
		payload = f.Planes[0]
	}
	return frame.EncodedOutputChunk{Pts: f.Pts, Payload: payload, IsKeyframe: force}, nil
}

// lookupAudioCodec finds a registered media-sdk audio codec by SDP name
// prefix (e.g. "opus"), mirroring bridge/service.go's SIPCodecs payload
// type assignment: static codecs use their RTP default type, everything
// else gets dynamic type 96.
func lookupAudioCodec(name string) (msdkrtp.AudioCodec, uint8, error) {
	for _, c := range msdk.EnabledCodecs() {
		ac, ok := c.(msdkrtp.AudioCodec)
		if !ok {
			continue
		}
		info := ac.Info()
		if name != "" && !matchesCodecName(info.SDPName, name) {
			continue
		}
		if info.RTPIsStatic {
			return ac, info.RTPDefType, nil
		}
		return ac, 96, nil
	}
	return nil, 0, fmt.Errorf("smelter: no audio codec registered matching %q (build with the matching -tags?)", name)
}

func matchesCodecName(sdpName, want string) bool {
	for i := 0; i < len(sdpName) && i < len(want); i++ {
		if sdpName[i] != want[i] {
			return false
		}
	}
	return len(sdpName) >= len(want)
}

// BuildInput constructs one input's decoder workers from a control-API
// register request (§3 InputRegistration, §6).
func (f *mediaFactory) BuildInput(id ids.InputId, req api.InputRegisterRequest) (queue.InputOptions, *decoder.VideoWorker, *decoder.AudioWorker, error) {
	opts := queue.InputOptions{Required: req.Required}
	if req.OffsetMs != nil {
		d := msToDuration(*req.OffsetMs)
		opts.Offset = &d
	}
	if req.BufferDurationMs != nil {
		d := msToDuration(*req.BufferDurationMs)
		opts.BufferDuration = &d
	}
	opts.StaleWindow = msToDuration(req.StaleWindowMs)

	counters := f.registry.For(string(id))

	videoCodec, _ := stringOpt(req.ProtocolOptions, "video_codec")
	audioCodec, _ := stringOpt(req.ProtocolOptions, "audio_codec")

	var videoWorker *decoder.VideoWorker
	if videoCodec != "none" {
		variant, err := videoVariantFromName(videoCodec)
		if err != nil {
			return queue.InputOptions{}, nil, nil, err
		}
		videoWorker = decoder.NewVideoWorker(string(id)+"-video", variant, f.log, counters, f.bus, nil, 16, 16)
	}

	var audioWorker *decoder.AudioWorker
	var audioClockRate uint32 = 48000
	if audioCodec != "none" {
		codec, pt, err := lookupAudioCodec(audioCodec)
		if err != nil {
			return queue.InputOptions{}, nil, nil, err
		}
		audioClockRate = codec.Info().RTPClockRate
		variant, err := decoder.NewLiveKitAudioVariant(codec, pt, f.cfg.Channels, nil)
		if err != nil {
			return queue.InputOptions{}, nil, nil, err
		}
		audioWorker = decoder.NewAudioWorker(string(id)+"-audio", variant, f.log, counters, 32, 32)
	}

	// The worker's Run loop is started here, detached from the pipeline's
	// own context (pipeline/input.go only ever reads Out(), grounded on
	// readSIP never owning the decode step itself): it exits on EOS fed in
	// by the receive loop below, the same pattern internal/pipeline's own
	// tests use for a fake factory.
	switch req.Protocol {
	case "rtp":
		if videoWorker != nil {
			addr, _ := stringOpt(req.ProtocolOptions, "video_listen_addr")
			if err := f.startRTPReceive(videoWorker.In(), addr, 90000); err != nil {
				return queue.InputOptions{}, nil, nil, err
			}
			if rtcpAddr, ok := stringOpt(req.ProtocolOptions, "video_rtcp_addr"); ok && rtcpAddr != "" {
				ssrc := uint32(intOpt(req.ProtocolOptions, "video_ssrc", 0))
				f.startRTCPSync(id, rtcpAddr, ssrc, 90000)
			}
		}
		if audioWorker != nil {
			addr, _ := stringOpt(req.ProtocolOptions, "audio_listen_addr")
			if err := f.startRTPReceive(audioWorker.In(), addr, audioClockRate); err != nil {
				return queue.InputOptions{}, nil, nil, err
			}
			if rtcpAddr, ok := stringOpt(req.ProtocolOptions, "audio_rtcp_addr"); ok && rtcpAddr != "" {
				ssrc := uint32(intOpt(req.ProtocolOptions, "audio_ssrc", 0))
				f.startRTCPSync(id, rtcpAddr, ssrc, audioClockRate)
			}
		}
	}
	if videoWorker != nil {
		go videoWorker.Run(context.Background())
	}
	if audioWorker != nil {
		go audioWorker.Run(context.Background())
	}

	return opts, videoWorker, audioWorker, nil
}

// startRTPReceive opens a UDP listener at addr and forwards every packet's
// payload into in as an EncodedInputChunk, stopping and feeding EOS once
// the socket errors out (peer gone, or Close from elsewhere). clockRate is
// the track's own RTP clock rate (90000 for video per RFC convention, the
// negotiated audio codec's RTPClockRate for audio) so media pts is derived
// correctly before it ever reaches the queue's alignment step.
func (f *mediaFactory) startRTPReceive(in chan<- frame.PipelineEvent[frame.EncodedInputChunk], addr string, clockRate uint32) error {
	if addr == "" {
		return fmt.Errorf("smelter: rtp protocol requires a listen address")
	}
	if clockRate == 0 {
		clockRate = 90000
	}
	recv, err := transport.ListenRTPUDP(addr)
	if err != nil {
		return err
	}
	go func() {
		defer recv.Close()
		for {
			pkt, err := recv.Recv()
			if err != nil {
				in <- frame.EOS[frame.EncodedInputChunk]()
				return
			}
			pts := time.Duration(float64(pkt.Timestamp) / float64(clockRate) * float64(time.Second))
			in <- frame.Data(frame.EncodedInputChunk{Payload: pkt.Payload, Pts: pts})
		}
	}()
	return nil
}

// startRTCPSync listens for RTCP sender reports at addr and converts the
// first matching one into a clock.RtpNtpSyncPoint fed to the queue (§4.1:
// "RTP clocks are converted to pipeline time via NTP sender reports when
// available"), taking priority over the local first-packet heuristic for
// every subsequent frame/sample of id. ssrc 0 accepts the first sender
// report seen, since the caller has not necessarily learned the peer's
// SSRC ahead of time. Failures are logged and otherwise ignored: RTCP sync
// is a refinement over the first-packet offset, not a requirement for the
// input to function.
func (f *mediaFactory) startRTCPSync(id ids.InputId, addr string, ssrc uint32, clockRate uint32) {
	recv, err := transport.ListenRTCPUDP(addr)
	if err != nil {
		f.log.Error("rtcp sync listen failed", "input", id, "addr", addr, "err", err)
		return
	}
	go func() {
		defer recv.Close()
		for {
			pkts, err := recv.Recv()
			if err != nil {
				return
			}
			sync, ok := transport.ExtractRtpSyncPoint(pkts, ssrc, clockRate)
			if !ok {
				continue
			}
			f.queue.SetRtpSyncPoint(id, sync)
		}
	}()
}

// BuildOutput constructs one output's scene store/renderer/mixer/encoders
// and the ChunkSink transport writes flow to (§3 OutputRegistration, §6).
func (f *mediaFactory) BuildOutput(id ids.OutputId, req api.OutputRegisterRequest, initial scene.Scene) (*scene.Store, *scene.Renderer, *audiomixer.Mixer, *encoder.VideoWorker, *encoder.AudioWorker, pipeline.ChunkSink, error) {
	store := scene.NewStore(initial)
	renderer := scene.NewRenderer(store, gpuBackendFor(f.cfg))

	counters := f.registry.For(string(id))

	var videoEnc *encoder.VideoWorker
	if req.VideoEncoder != "" && req.VideoEncoder != "none" {
		variant, err := encoderVideoVariantFromName(req.VideoEncoder)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		videoEnc = encoder.NewVideoWorker(string(id)+"-video", variant, f.log, counters, 2*time.Second, 16, 16)
	}

	var mixer *audiomixer.Mixer
	var audioEnc *encoder.AudioWorker
	if req.AudioEncoder != "" && req.AudioEncoder != "none" {
		codec, pt, err := lookupAudioCodec(req.AudioEncoder)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		variant, err := encoder.NewLiveKitAudioVariant(codec, pt, f.cfg.SampleRate)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		audioEnc = encoder.NewAudioWorker(string(id)+"-audio", variant, f.log, counters, 32, 32)
		mixer = audiomixer.New(audiomixer.MixSumClip, f.cfg.SampleRate, f.cfg.Channels)
	}

	sink, err := f.sinkFor(id, req)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}

	return store, renderer, mixer, videoEnc, audioEnc, sink, nil
}

func msToDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

func stringOpt(opts map[string]any, key string) (string, bool) {
	if opts == nil {
		return "", false
	}
	v, ok := opts[key].(string)
	return v, ok
}

func intOpt(opts map[string]any, key string, fallback int) int {
	if opts == nil {
		return fallback
	}
	switch v := opts[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// gpuBackendFor picks the scene.GPUBackend. Vulkan Video/web-renderer
// compositing is the external-collaborator boundary scene.GPUBackend
// documents (§1 excludes shader/GPU authoring from scope); no such binding
// exists in this pack (see the dropped-dependency note in DESIGN.md), so
// this binary always wires the software fallback. EnableVulkanVideo is
// carried in config for a deployment that plugs a real backend in here.
func gpuBackendFor(cfg config.Config) scene.GPUBackend {
	return softwareBackend{}
}

// softwareBackend is a minimal CPU scene.GPUBackend: it satisfies the
// render/crossfade contract against already-bound leaf frames without a
// GPU, by passing the frame bound to the first input_stream leaf of the
// tree (depth-first order) straight through, whatever the root node kind.
// It performs no composition of non-leaf nodes (tile/view/shader/
// rescaler/text/image/web): only that one leaf's frame is output. Good
// enough to drive single-input passthrough outputs end to end; a tree with
// no bound input_stream leaf renders black (§4.5 step 2).
type softwareBackend struct{}

func (softwareBackend) Render(root scene.Node, bound map[ids.InputId]*frame.Frame, res frame.Resolution, format frame.PixelFormat) (frame.Frame, error) {
	for _, id := range root.InputStream() {
		if f, ok := bound[id]; ok && f != nil {
			out := *f
			out.Resolution = res
			return out, nil
		}
	}
	return scene.BlackFrame(res), nil
}

func (softwareBackend) Crossfade(a, b frame.Frame, weight float64) (frame.Frame, error) {
	if weight >= 0.5 {
		return b, nil
	}
	return a, nil
}

// rtpChunkSink writes encoded chunks out as RTP over a UDP (or TCP-framed)
// socket, pairing one payload.RTPPayloader/transport.RTPSender per track
// (§4.9 "one RTP timestamp per frame", "one SSRC per track").
type rtpChunkSink struct {
	videoPayloader *payload.RTPPayloader
	videoSender    *transport.RTPSender
	audioPayloader *payload.RTPPayloader
	audioSender    *transport.RTPSender
}

func (s *rtpChunkSink) WriteVideo(c frame.EncodedOutputChunk) error {
	return writeChunk(s.videoPayloader, s.videoSender, c)
}

func (s *rtpChunkSink) WriteAudio(c frame.EncodedOutputChunk) error {
	return writeChunk(s.audioPayloader, s.audioSender, c)
}

func writeChunk(p *payload.RTPPayloader, sender *transport.RTPSender, c frame.EncodedOutputChunk) error {
	if p == nil || sender == nil {
		return nil
	}
	packets, err := p.Payload(c)
	if err != nil {
		return err
	}
	for _, pkt := range packets {
		if err := sender.Send(pkt); err != nil {
			return err
		}
	}
	return nil
}

func (s *rtpChunkSink) Close() {
	if s.videoSender != nil {
		s.videoSender.Close()
	}
	if s.audioSender != nil && s.audioSender != s.videoSender {
		s.audioSender.Close()
	}
}

// discardSink is the ChunkSink for an output with no transport wired yet
// (e.g. registered purely to exercise scene/mix/encode before a transport
// destination is known).
type discardSink struct{}

func (discardSink) WriteVideo(frame.EncodedOutputChunk) error { return nil }
func (discardSink) WriteAudio(frame.EncodedOutputChunk) error { return nil }
func (discardSink) Close()                                    {}

// sinkFor builds the ChunkSink an output's TransportOptions describe (§4.9:
// "RTP over UDP or TCP (framed)"). Only the rtp_udp/rtp_tcp transports are
// wired to a live socket; RTMP/WHIP/WHEP/HLS/MP4 sit behind the same
// ChunkSink seam but this binary does not negotiate those sessions itself
// (no control-plane request for them exists yet in api.OutputRegisterRequest).
func (f *mediaFactory) sinkFor(id ids.OutputId, req api.OutputRegisterRequest) (pipeline.ChunkSink, error) {
	switch req.Transport {
	case "", "none":
		return discardSink{}, nil
	case "rtp_udp", "rtp_tcp":
		dest, _ := stringOpt(req.TransportOptions, "dest_addr")
		if dest == "" {
			return nil, fmt.Errorf("smelter: rtp transport requires dest_addr")
		}
		framed := req.Transport == "rtp_tcp"
		network := "udp"
		if framed {
			network = "tcp"
		}
		conn, err := net.Dial(network, dest)
		if err != nil {
			return nil, fmt.Errorf("smelter: dial rtp destination %s: %w", dest, err)
		}
		sink := &rtpChunkSink{}
		if req.VideoEncoder != "" && req.VideoEncoder != "none" {
			sink.videoSender = transport.NewRTPSender(conn, framed)
			sink.videoPayloader = payload.NewRTPPayloader(payload.RTPTrackConfig{
				PayloadType: uint8(intOpt(req.TransportOptions, "video_payload_type", 96)),
				ClockRate:   90000,
				SSRC:        uint32(intOpt(req.TransportOptions, "video_ssrc", 1)),
				MTU:         f.cfg.RTPMTU,
			})
		}
		if req.AudioEncoder != "" && req.AudioEncoder != "none" {
			if sink.videoSender == nil {
				sink.audioSender = transport.NewRTPSender(conn, framed)
			} else {
				sink.audioSender = sink.videoSender
			}
			sink.audioPayloader = payload.NewRTPPayloader(payload.RTPTrackConfig{
				PayloadType: uint8(intOpt(req.TransportOptions, "audio_payload_type", 97)),
				ClockRate:   uint32(f.cfg.SampleRate),
				SSRC:        uint32(intOpt(req.TransportOptions, "audio_ssrc", 2)),
				MTU:         f.cfg.RTPMTU,
			})
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("smelter: unknown output transport %q", req.Transport)
	}
}
