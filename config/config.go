// Package config loads acquisition-driver and ring-buffer defaults from
// a YAML baseline, optionally overridden by a second file, the way the
// teacher's server/config package layers config.yaml on top of
// config.default.yaml.
package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// RingBufferConfig holds the ring buffer's informational defaults. The
// real block size at construction time is derived from ROI and bit
// depth, not read from here; DefaultBlockSize is informational, and
// nothing in this module reads it.
type RingBufferConfig struct {
	DefaultCapacity  int `yaml:"defaultCapacity"`
	DefaultBlockSize int `yaml:"defaultBlockSize"`
}

// AcquisitionConfig holds the acquisition driver's timing knobs.
type AcquisitionConfig struct {
	GrabTimeout           string `yaml:"grabTimeout"`
	StopJoinTimeout       string `yaml:"stopJoinTimeout"`
	SoftwareTriggerPeriod string `yaml:"softwareTriggerPeriod"`

	GrabTimeoutDur           time.Duration `yaml:"-"`
	StopJoinTimeoutDur       time.Duration `yaml:"-"`
	SoftwareTriggerPeriodDur time.Duration `yaml:"-"`
}

// TransportConfig holds the opaque connection/timeout knobs for one
// backend transport family. The core never interprets these fields
// itself; they are only ever handed to a backend via Camera.Write.
type TransportConfig struct {
	ConnectTimeout string `yaml:"connectTimeout"`
	ReadTimeout    string `yaml:"readTimeout"`
	PixelClock     string `yaml:"pixelClock"` // parsed into PixelClockFreq

	ConnectTimeoutDur time.Duration    `yaml:"-"`
	ReadTimeoutDur    time.Duration    `yaml:"-"`
	PixelClockFreq    physic.Frequency `yaml:"-"`
}

// StreamerConfig holds the optional live-preview WebSocket fan-out's
// settings.
type StreamerConfig struct {
	Addr          string `yaml:"addr"`
	ClientBacklog int    `yaml:"clientBacklog"`
}

// Config holds all runtime configuration for a camcore-based
// acquisition process.
type Config struct {
	RingBuffer  RingBufferConfig  `yaml:"ringBuffer"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Streamer    StreamerConfig    `yaml:"streamer"`

	FrameGrabber TransportConfig `yaml:"frameGrabber"`
	PCIe         TransportConfig `yaml:"pcie"`
	UDP          TransportConfig `yaml:"udp"`
}

// LoadResult holds both the effective merged config and the raw
// defaults, so callers (e.g. a future config-editing UI) can diff
// against the baseline the way the teacher's SaveOverrides does.
type LoadResult struct {
	Config   *Config
	Defaults *Config
}

// Load reads defaultPath as the baseline (fatal if missing or
// malformed — the default file is load-bearing) then applies any
// overrides from overridePath, if it exists and parses cleanly
// (malformed overrides are logged and ignored, never fatal).
func Load(defaultPath, overridePath string) *LoadResult {
	var defaults Config

	data, err := os.ReadFile(defaultPath)
	if err != nil {
		log.Fatalf("config: read error: %v", err)
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		log.Fatalf("config: parse error: %v", err)
	}

	cfg := defaults
	if ovData, err := os.ReadFile(overridePath); err == nil {
		if err := yaml.Unmarshal(ovData, &cfg); err != nil {
			log.Printf("config: ignoring malformed %s: %v", overridePath, err)
		}
	}

	derive(&cfg)
	derive(&defaults)

	return &LoadResult{Config: &cfg, Defaults: &defaults}
}

func derive(cfg *Config) {
	cfg.Acquisition.GrabTimeoutDur = parseDuration(cfg.Acquisition.GrabTimeout, "acquisition.grabTimeout")
	cfg.Acquisition.StopJoinTimeoutDur = parseDuration(cfg.Acquisition.StopJoinTimeout, "acquisition.stopJoinTimeout")
	cfg.Acquisition.SoftwareTriggerPeriodDur = parseDuration(cfg.Acquisition.SoftwareTriggerPeriod, "acquisition.softwareTriggerPeriod")

	derivedTransport(&cfg.FrameGrabber, "frameGrabber")
	derivedTransport(&cfg.PCIe, "pcie")
	derivedTransport(&cfg.UDP, "udp")
}

func derivedTransport(t *TransportConfig, name string) {
	t.ConnectTimeoutDur = parseDuration(t.ConnectTimeout, name+".connectTimeout")
	t.ReadTimeoutDur = parseDuration(t.ReadTimeout, name+".readTimeout")
	if t.PixelClock == "" {
		return
	}
	if err := t.PixelClockFreq.Set(t.PixelClock); err != nil {
		log.Fatalf("config: invalid %s.pixelClock %q: %v", name, t.PixelClock, err)
	}
}

func parseDuration(s, field string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("config: invalid %s %q: %v", field, s, err)
	}
	return d
}
