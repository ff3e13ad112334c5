// Package faceemotion overlays face boxes, age, gender and the dominant emotion
// on periodic camera frames, using the Azure Face API for detection.
//
// Basic usage:
//
//	src, _ := capture.NewSource(ctx, capture.DefaultConfig(), processing.NewProcessor())
//	api, _ := faceapi.NewClient(faceapi.DefaultConfig(endpoint, key))
//	sink, _ := output.NewFileSink(output.FileConfig{Dir: "out"}, processing.NewProcessor())
//
//	m := faceemotion.New(src, api, faceemotion.DefaultOptions(), sink)
//	m.Start(ctx)
//	m.Toggle() // capture starts disabled
//	...
//	m.Close()
//	m.Wait()
//
// Every interval the monitor grabs a frame, encodes it, posts it to the detect
// endpoint and redraws the canvas with one box and three labels per face. Cycles
// are independent: a slow request overlaps with the next one and the last render
// is what the canvas and the sinks show. Failures are logged and the cycle is
// dropped.
package faceemotion

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/menta2k/face-emotion/internal/log"
	"github.com/menta2k/face-emotion/pkg/capture"
	"github.com/menta2k/face-emotion/pkg/client"
	"github.com/menta2k/face-emotion/pkg/detection"
	"github.com/menta2k/face-emotion/pkg/output"
	"github.com/menta2k/face-emotion/pkg/processing"
	"github.com/menta2k/face-emotion/pkg/render"
	"github.com/menta2k/face-emotion/pkg/trigger"
	"github.com/menta2k/face-emotion/pkg/types"
)

// Version of the face-emotion module
const Version = "1.0.0"

// Options tune the capture loop
type Options struct {
	Interval     time.Duration
	CanvasWidth  int
	CanvasHeight int
	Style        render.Style
	Format       string // frame encoding sent to the API: jpg or png
	Quality      int
	AutoStart    bool // enable capture as soon as Start is called
}

// DefaultOptions polls every 3 seconds onto a 640x480 canvas
func DefaultOptions() Options {
	return Options{
		Interval:     trigger.DefaultInterval,
		CanvasWidth:  640,
		CanvasHeight: 480,
		Style:        render.DefaultStyle(),
		Format:       "jpg",
		Quality:      90,
	}
}

// Monitor ties a frame source, the Face API and the overlay canvas to a toggleable timer
type Monitor struct {
	source   capture.Source
	detector *detection.Detector
	proc     *processing.Processor
	canvas   *render.Canvas
	trigger  *trigger.Trigger
	sinks    []output.Sink
	opts     Options

	// publishMu orders publishes; lastPublished is the newest render the sinks have seen
	publishMu     sync.Mutex
	lastPublished uint64
}

// New builds a monitor. Capture stays disabled until Toggle, unless opts.AutoStart is set.
func New(source capture.Source, faceClient client.FaceClient, opts Options, sinks ...output.Sink) *Monitor {
	def := DefaultOptions()
	if opts.CanvasWidth <= 0 || opts.CanvasHeight <= 0 {
		opts.CanvasWidth, opts.CanvasHeight = def.CanvasWidth, def.CanvasHeight
	}
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if opts.Style.LineHeight <= 0 {
		opts.Style = def.Style
	}

	m := &Monitor{
		source:   source,
		detector: detection.NewDetector(faceClient),
		proc:     processing.NewProcessor(),
		canvas:   render.NewCanvas(opts.CanvasWidth, opts.CanvasHeight, opts.Style),
		sinks:    sinks,
		opts:     opts,
	}
	m.trigger = trigger.New(opts.Interval, m.cycle)
	return m
}

// AddSink registers another publish target. Call it before Start.
func (m *Monitor) AddSink(s output.Sink) {
	m.sinks = append(m.sinks, s)
}

// Start begins ticking. It does not block.
func (m *Monitor) Start(ctx context.Context) {
	m.trigger.Start(ctx)
	if m.opts.AutoStart {
		m.trigger.Enable()
	}
	log.Info(log.Fields{"interval": m.trigger.Interval().String(), "enabled": m.trigger.Enabled()}, "capture loop started")
}

// Toggle flips capture on or off and returns the new state
func (m *Monitor) Toggle() bool {
	enabled := m.trigger.Toggle()
	log.Info(log.Fields{"enabled": enabled}, "capture toggled")
	return enabled
}

// Enabled reports whether capture is on
func (m *Monitor) Enabled() bool {
	return m.trigger.Enabled()
}

// Fired returns how many capture cycles have been launched
func (m *Monitor) Fired() int64 {
	return m.trigger.Fired()
}

// Canvas returns a copy of the current overlay canvas
func (m *Monitor) Canvas() *image.NRGBA {
	return m.canvas.Image()
}

// Close stops the timer for good and releases the source. In-flight cycles keep running.
func (m *Monitor) Close() error {
	m.trigger.Close()
	return m.source.Close()
}

// Wait blocks until in-flight cycles have finished. Call it after Close.
func (m *Monitor) Wait() {
	m.trigger.Wait()
}

func (m *Monitor) cycle(ctx context.Context) {
	snap, err := m.Poll(ctx)
	if err != nil {
		log.Error(log.Fields{"error": err.Error()}, "capture cycle failed")
		return
	}
	log.Debug(log.Fields{"frame": snap.FrameID, "faces": len(snap.Faces)}, "capture cycle done")
}

// Poll runs one capture cycle: grab a frame, detect faces, redraw the canvas and publish it
func (m *Monitor) Poll(ctx context.Context) (*types.Snapshot, error) {
	frame, err := m.source.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	faces, err := m.detect(ctx, frame.Image)
	if err != nil {
		return nil, err
	}

	canvas, seq := m.canvas.RenderSeq(faces)
	snap := &types.Snapshot{
		FrameID:    frame.ID,
		CapturedAt: frame.CapturedAt,
		Faces:      faces,
		Canvas:     canvas,
		Overlay:    m.proc.Overlay(frame.Image, canvas),
	}
	m.publish(ctx, seq, snap)
	return snap, nil
}

// Analyze detects and draws the faces of a single image on a canvas of the image's size.
// The monitor's own canvas and sinks are not touched.
func (m *Monitor) Analyze(ctx context.Context, img image.Image) (*types.Snapshot, error) {
	faces, err := m.detect(ctx, img)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	canvas := render.NewCanvas(b.Dx(), b.Dy(), m.opts.Style).Render(faces)
	return &types.Snapshot{
		CapturedAt: time.Now(),
		Faces:      faces,
		Canvas:     canvas,
		Overlay:    m.proc.Overlay(img, canvas),
	}, nil
}

func (m *Monitor) detect(ctx context.Context, img image.Image) ([]types.FaceAnalysis, error) {
	if err := m.proc.ValidateFrame(img); err != nil {
		return nil, err
	}
	dataURL, err := m.proc.EncodeFrame(img, m.opts.Format, m.opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	blob, err := m.proc.DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return m.detector.DetectFaces(ctx, blob)
}

// publish hands snap to the sinks unless a later render already reached them
func (m *Monitor) publish(ctx context.Context, seq uint64, snap *types.Snapshot) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	if seq <= m.lastPublished {
		log.Debug(log.Fields{"frame": snap.FrameID}, "skipping publish of superseded render")
		return
	}
	m.lastPublished = seq

	for _, s := range m.sinks {
		if err := s.Publish(ctx, snap); err != nil {
			log.Warn(log.Fields{"frame": snap.FrameID, "error": err.Error()}, "publish failed")
		}
	}
}
