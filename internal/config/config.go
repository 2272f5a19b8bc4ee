// Package config loads Smelter's process-wide configuration.
//
// Grounded on bridge/config.go: the same shape (a flat Config struct, a
// constructor that seeds defaults then overlays overrides, cross-field
// validation returning a wrapped error) but re-sourced from the
// environment instead of a YAML file, per spec §6 ("reads configuration
// from environment"). The teacher's config-file path is kept as an
// optional static-fixture loader for local/test bring-up.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAPIBindAddr     = ":8081"
	defaultRTMPBindPort    = 1935
	defaultRTPBindPort     = 5000
	defaultOutputWidth     = 1920
	defaultOutputHeight    = 1080
	defaultFramerate       = 30
	defaultSampleRate      = 48000
	defaultChannels        = 2
	defaultAudioBatchMs    = 20
	defaultMaxWaitFrames   = 5
	defaultDropThresholdMs = 2000
	defaultHLSSegmentMs    = 6000
	defaultHLSPlaylistSize = 5
	defaultRTPMTU          = 1200
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

// Config is Smelter's process-wide configuration (§5 "resource model",
// §6 "external interfaces"). Every field has a workable default; nothing
// is required to start the pipeline itself, since inputs/outputs are
// registered afterward through the control API.
type Config struct {
	// Control API (§6).
	APIBindAddr string
	LogLevel    string
	LogFormat   string // "text" or "json"

	// Transport defaults, overridable per output registration.
	RTMPBindPort int
	RTPBindPort  int
	RTPMTU       int

	WHIPBearerToken string

	// Output defaults.
	OutputWidth  int
	OutputHeight int
	Framerate    int
	SampleRate   int
	Channels     int
	AudioBatch   time.Duration

	// Queue tuning (§4.4).
	MaxWaitFrames int // required-input stall budget, in frame intervals
	DropThreshold time.Duration

	// HLS muxing defaults (§4.9).
	HLSSegmentDuration time.Duration
	HLSMaxPlaylistSize int

	// Feature gates (§6 "Environment": must report a clear error at
	// registration time rather than silently succeed when unavailable).
	EnableVulkanVideo bool
	EnableDeckLink    bool
	EnableWebRenderer bool
	RendererHelperBin string
}

func defaults() Config {
	return Config{
		APIBindAddr:        defaultAPIBindAddr,
		LogLevel:           defaultLogLevel,
		LogFormat:          defaultLogFormat,
		RTMPBindPort:       defaultRTMPBindPort,
		RTPBindPort:        defaultRTPBindPort,
		RTPMTU:             defaultRTPMTU,
		OutputWidth:        defaultOutputWidth,
		OutputHeight:       defaultOutputHeight,
		Framerate:          defaultFramerate,
		SampleRate:         defaultSampleRate,
		Channels:           defaultChannels,
		AudioBatch:         defaultAudioBatchMs * time.Millisecond,
		MaxWaitFrames:      defaultMaxWaitFrames,
		DropThreshold:      defaultDropThresholdMs * time.Millisecond,
		HLSSegmentDuration: defaultHLSSegmentMs * time.Millisecond,
		HLSMaxPlaylistSize: defaultHLSPlaylistSize,
	}
}

// envLookup abstracts os.Getenv so LoadFromEnv is testable without
// mutating the process environment.
type envLookup func(key string) (string, bool)

// LoadFromEnv builds a Config from the process environment, seeding
// defaults() first and overlaying any SMELTER_* variable that is set.
func LoadFromEnv() (Config, error) {
	return loadFromEnv(os.LookupEnv)
}

func loadFromEnv(lookup envLookup) (Config, error) {
	cfg := defaults()

	if v, ok := lookup("SMELTER_API_BIND"); ok && v != "" {
		cfg.APIBindAddr = v
	}
	if v, ok := lookup("SMELTER_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("SMELTER_LOG_FORMAT"); ok && v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("SMELTER_LOG_FORMAT must be 'text' or 'json', got %q", cfg.LogFormat)
	}

	var err error
	if cfg.RTMPBindPort, err = intEnv(lookup, "SMELTER_RTMP_PORT", cfg.RTMPBindPort); err != nil {
		return Config{}, err
	}
	if cfg.RTPBindPort, err = intEnv(lookup, "SMELTER_RTP_PORT", cfg.RTPBindPort); err != nil {
		return Config{}, err
	}
	if cfg.RTPMTU, err = intEnv(lookup, "SMELTER_RTP_MTU", cfg.RTPMTU); err != nil {
		return Config{}, err
	}
	if v, ok := lookup("SMELTER_WHIP_BEARER_TOKEN"); ok {
		cfg.WHIPBearerToken = v
	}

	if cfg.OutputWidth, err = intEnv(lookup, "SMELTER_OUTPUT_WIDTH", cfg.OutputWidth); err != nil {
		return Config{}, err
	}
	if cfg.OutputHeight, err = intEnv(lookup, "SMELTER_OUTPUT_HEIGHT", cfg.OutputHeight); err != nil {
		return Config{}, err
	}
	if cfg.Framerate, err = intEnv(lookup, "SMELTER_FRAMERATE", cfg.Framerate); err != nil {
		return Config{}, err
	}
	if cfg.Framerate <= 0 {
		return Config{}, fmt.Errorf("SMELTER_FRAMERATE must be positive, got %d", cfg.Framerate)
	}
	if cfg.SampleRate, err = intEnv(lookup, "SMELTER_SAMPLE_RATE", cfg.SampleRate); err != nil {
		return Config{}, err
	}
	if cfg.Channels, err = intEnv(lookup, "SMELTER_CHANNELS", cfg.Channels); err != nil {
		return Config{}, err
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return Config{}, fmt.Errorf("SMELTER_CHANNELS must be 1 or 2, got %d", cfg.Channels)
	}
	if cfg.AudioBatch, err = durationEnv(lookup, "SMELTER_AUDIO_BATCH", cfg.AudioBatch); err != nil {
		return Config{}, err
	}

	if cfg.MaxWaitFrames, err = intEnv(lookup, "SMELTER_QUEUE_MAX_WAIT_FRAMES", cfg.MaxWaitFrames); err != nil {
		return Config{}, err
	}
	if cfg.MaxWaitFrames <= 0 {
		return Config{}, fmt.Errorf("SMELTER_QUEUE_MAX_WAIT_FRAMES must be positive, got %d", cfg.MaxWaitFrames)
	}
	if cfg.DropThreshold, err = durationEnv(lookup, "SMELTER_QUEUE_DROP_THRESHOLD", cfg.DropThreshold); err != nil {
		return Config{}, err
	}

	if cfg.HLSSegmentDuration, err = durationEnv(lookup, "SMELTER_HLS_SEGMENT_DURATION", cfg.HLSSegmentDuration); err != nil {
		return Config{}, err
	}
	if cfg.HLSMaxPlaylistSize, err = intEnv(lookup, "SMELTER_HLS_MAX_PLAYLIST_SIZE", cfg.HLSMaxPlaylistSize); err != nil {
		return Config{}, err
	}

	if cfg.EnableVulkanVideo, err = boolEnv(lookup, "SMELTER_ENABLE_VULKAN_VIDEO", false); err != nil {
		return Config{}, err
	}
	if cfg.EnableDeckLink, err = boolEnv(lookup, "SMELTER_ENABLE_DECKLINK", false); err != nil {
		return Config{}, err
	}
	if cfg.EnableWebRenderer, err = boolEnv(lookup, "SMELTER_ENABLE_WEB_RENDERER", false); err != nil {
		return Config{}, err
	}
	if v, ok := lookup("SMELTER_RENDERER_HELPER_BIN"); ok && v != "" {
		cfg.RendererHelperBin = v
	}
	if cfg.EnableWebRenderer && cfg.RendererHelperBin == "" {
		return Config{}, errors.New("SMELTER_RENDERER_HELPER_BIN is required when SMELTER_ENABLE_WEB_RENDERER is set")
	}

	return cfg, nil
}

func intEnv(lookup envLookup, key string, fallback int) (int, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(lookup envLookup, key string, fallback bool) (bool, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(lookup envLookup, key string, fallback time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// yamlConfig is the shape of the optional static-fixture file accepted by
// LoadFromFile, field-for-field the same overrides LoadFromEnv exposes,
// mirroring the teacher's nested yamlConfig-then-flatten pattern in
// bridge/config.go.
type yamlConfig struct {
	API struct {
		BindAddr string `yaml:"bind_addr"`
	} `yaml:"api"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Transport struct {
		RTMPPort        int    `yaml:"rtmp_port"`
		RTPPort         int    `yaml:"rtp_port"`
		RTPMTU          int    `yaml:"rtp_mtu"`
		WHIPBearerToken string `yaml:"whip_bearer_token"`
	} `yaml:"transport"`
	Output struct {
		Width      int    `yaml:"width"`
		Height     int    `yaml:"height"`
		Framerate  int    `yaml:"framerate"`
		SampleRate int    `yaml:"sample_rate"`
		Channels   int    `yaml:"channels"`
		AudioBatch string `yaml:"audio_batch"`
	} `yaml:"output"`
	Queue struct {
		MaxWaitFrames int    `yaml:"max_wait_frames"`
		DropThreshold string `yaml:"drop_threshold"`
	} `yaml:"queue"`
	HLS struct {
		SegmentDuration string `yaml:"segment_duration"`
		MaxPlaylistSize int    `yaml:"max_playlist_size"`
	} `yaml:"hls"`
	Features struct {
		VulkanVideo  bool   `yaml:"vulkan_video"`
		DeckLink     bool   `yaml:"decklink"`
		WebRenderer  bool   `yaml:"web_renderer"`
		RendererHelp string `yaml:"renderer_helper_bin"`
	} `yaml:"features"`
}

// LoadFromFile reads a static YAML fixture, for local bring-up and tests
// that want a reproducible config without touching the environment.
func LoadFromFile(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.API.BindAddr != "" {
		cfg.APIBindAddr = yc.API.BindAddr
	}
	if yc.Log.Level != "" {
		cfg.LogLevel = strings.ToLower(yc.Log.Level)
	}
	if yc.Log.Format != "" {
		cfg.LogFormat = strings.ToLower(yc.Log.Format)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("log.format must be 'text' or 'json', got %q", cfg.LogFormat)
	}

	if yc.Transport.RTMPPort > 0 {
		cfg.RTMPBindPort = yc.Transport.RTMPPort
	}
	if yc.Transport.RTPPort > 0 {
		cfg.RTPBindPort = yc.Transport.RTPPort
	}
	if yc.Transport.RTPMTU > 0 {
		cfg.RTPMTU = yc.Transport.RTPMTU
	}
	cfg.WHIPBearerToken = yc.Transport.WHIPBearerToken

	if yc.Output.Width > 0 {
		cfg.OutputWidth = yc.Output.Width
	}
	if yc.Output.Height > 0 {
		cfg.OutputHeight = yc.Output.Height
	}
	if yc.Output.Framerate > 0 {
		cfg.Framerate = yc.Output.Framerate
	}
	if yc.Output.SampleRate > 0 {
		cfg.SampleRate = yc.Output.SampleRate
	}
	if yc.Output.Channels > 0 {
		cfg.Channels = yc.Output.Channels
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return Config{}, fmt.Errorf("output.channels must be 1 or 2, got %d", cfg.Channels)
	}
	if yc.Output.AudioBatch != "" {
		d, err := time.ParseDuration(yc.Output.AudioBatch)
		if err != nil {
			return Config{}, fmt.Errorf("invalid output.audio_batch: %w", err)
		}
		cfg.AudioBatch = d
	}

	if yc.Queue.MaxWaitFrames > 0 {
		cfg.MaxWaitFrames = yc.Queue.MaxWaitFrames
	}
	if yc.Queue.DropThreshold != "" {
		d, err := time.ParseDuration(yc.Queue.DropThreshold)
		if err != nil {
			return Config{}, fmt.Errorf("invalid queue.drop_threshold: %w", err)
		}
		cfg.DropThreshold = d
	}

	if yc.HLS.SegmentDuration != "" {
		d, err := time.ParseDuration(yc.HLS.SegmentDuration)
		if err != nil {
			return Config{}, fmt.Errorf("invalid hls.segment_duration: %w", err)
		}
		cfg.HLSSegmentDuration = d
	}
	if yc.HLS.MaxPlaylistSize > 0 {
		cfg.HLSMaxPlaylistSize = yc.HLS.MaxPlaylistSize
	}

	cfg.EnableVulkanVideo = yc.Features.VulkanVideo
	cfg.EnableDeckLink = yc.Features.DeckLink
	cfg.EnableWebRenderer = yc.Features.WebRenderer
	cfg.RendererHelperBin = yc.Features.RendererHelp
	if cfg.EnableWebRenderer && cfg.RendererHelperBin == "" {
		return Config{}, errors.New("features.renderer_helper_bin is required when features.web_renderer is set")
	}

	return cfg, nil
}
