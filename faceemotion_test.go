package faceemotion

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/menta2k/face-emotion/pkg/capture"
	"github.com/menta2k/face-emotion/pkg/types"
)

type fakeFaceClient struct {
	calls atomic.Int64
	faces []types.FaceModel
	err   error
}

func (f *fakeFaceClient) DetectFaces(ctx context.Context, image []byte) ([]types.FaceModel, error) {
	f.calls.Add(1)
	if len(image) == 0 {
		return nil, errors.New("empty body")
	}
	return f.faces, f.err
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []*types.Snapshot
}

func (s *recordingSink) Publish(ctx context.Context, snap *types.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	return img
}

func oneFace() []types.FaceModel {
	return []types.FaceModel{{
		FaceID:        "f1",
		FaceRectangle: types.FaceRectangle{Left: 50, Top: 40, Width: 100, Height: 120},
		FaceAttributes: types.FaceAttributes{
			Age:     27.5,
			Gender:  "female",
			Emotion: types.EmotionScores{Happiness: 0.98, Neutral: 0.02},
		},
	}}
}

func TestPollRendersAndPublishes(t *testing.T) {
	fc := &fakeFaceClient{faces: oneFace()}
	sink := &recordingSink{}
	m := New(capture.NewImageSource(testFrame()), fc, DefaultOptions(), sink)

	snap, err := m.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if fc.calls.Load() != 1 {
		t.Errorf("Expected one API call, got %d", fc.calls.Load())
	}
	if len(snap.Faces) != 1 {
		t.Fatalf("Expected one face, got %+v", snap.Faces)
	}
	if top, ok := snap.Faces[0].TopEmotion(); !ok || top.Emotion != "happy" {
		t.Errorf("Unexpected top emotion %+v", top)
	}
	if snap.Canvas.Bounds().Dx() != 640 || snap.Canvas.Bounds().Dy() != 480 {
		t.Errorf("Expected 640x480 canvas, got %v", snap.Canvas.Bounds())
	}
	if _, _, _, a := snap.Canvas.At(50, 40).RGBA(); a == 0 {
		t.Error("Expected the face box corner to be drawn")
	}
	if _, _, _, a := snap.Canvas.At(5, 5).RGBA(); a != 0 {
		t.Error("Canvas outside the face must stay transparent")
	}
	if sink.count() != 1 {
		t.Errorf("Expected one publish, got %d", sink.count())
	}
}

func TestPollDropsFailedCycle(t *testing.T) {
	fc := &fakeFaceClient{err: errors.New("boom")}
	sink := &recordingSink{}
	m := New(capture.NewImageSource(testFrame()), fc, DefaultOptions(), sink)

	if _, err := m.Poll(context.Background()); err == nil {
		t.Fatal("Expected error from failing client")
	}
	if sink.count() != 0 {
		t.Error("Failed cycles must not publish")
	}
}

func TestPollRejectsTinyFrame(t *testing.T) {
	fc := &fakeFaceClient{}
	m := New(capture.NewImageSource(image.NewRGBA(image.Rect(0, 0, 10, 10))), fc, DefaultOptions())

	if _, err := m.Poll(context.Background()); err == nil {
		t.Fatal("Expected frame size error")
	}
	if fc.calls.Load() != 0 {
		t.Error("Tiny frames must not reach the API")
	}
}

func TestNoFacesClearsCanvas(t *testing.T) {
	fc := &fakeFaceClient{faces: oneFace()}
	m := New(capture.NewImageSource(testFrame()), fc, DefaultOptions())

	m.Poll(context.Background())
	fc.faces = nil
	snap, err := m.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if _, _, _, a := snap.Canvas.At(50, 40).RGBA(); a != 0 {
		t.Error("Canvas should be cleared when no faces come back")
	}
}

func TestAnalyzeUsesImageSize(t *testing.T) {
	fc := &fakeFaceClient{faces: oneFace()}
	sink := &recordingSink{}
	m := New(capture.NewImageSource(testFrame()), fc, DefaultOptions(), sink)

	snap, err := m.Analyze(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.Canvas.Bounds().Dx() != 320 || snap.Overlay.Bounds().Dx() != 320 {
		t.Errorf("Expected canvas sized to the image, got %v", snap.Canvas.Bounds())
	}
	if sink.count() != 0 {
		t.Error("Analyze must not publish")
	}
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestToggleGatesRequests(t *testing.T) {
	fc := &fakeFaceClient{faces: oneFace()}
	opts := DefaultOptions()
	opts.Interval = 5 * time.Millisecond
	m := New(capture.NewImageSource(testFrame()), fc, opts)

	m.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	if fc.calls.Load() != 0 {
		t.Fatalf("Disabled monitor issued %d requests", fc.calls.Load())
	}

	if !m.Toggle() {
		t.Fatal("Toggle should enable capture")
	}
	if !waitFor(t, func() bool { return fc.calls.Load() > 0 }) {
		t.Fatal("Enabled monitor never issued a request")
	}

	m.Close()
	m.Wait()
	after := fc.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if fc.calls.Load() != after {
		t.Error("Requests continued after Close")
	}
	if m.Enabled() || m.Toggle() {
		t.Error("Closed monitor must stay disabled")
	}
}

// sequencedClient returns one face per call, taken from faces in order
type sequencedClient struct {
	mu    sync.Mutex
	faces []types.FaceModel
	next  int
}

func (c *sequencedClient) DetectFaces(ctx context.Context, image []byte) ([]types.FaceModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.faces[c.next%len(c.faces)]
	c.next++
	return []types.FaceModel{f}, nil
}

// gatedSink holds the publish of face "A" until release is closed
type gatedSink struct {
	recordingSink
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSink) Publish(ctx context.Context, snap *types.Snapshot) error {
	if len(snap.Faces) == 1 && snap.Faces[0].Face.FaceID == "A" {
		close(s.entered)
		<-s.release
	}
	return s.recordingSink.Publish(ctx, snap)
}

func (s *gatedSink) last() *types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return nil
	}
	return s.snaps[len(s.snaps)-1]
}

func TestOverlappingCyclesPublishLastRender(t *testing.T) {
	faceA := types.FaceModel{FaceID: "A", FaceRectangle: types.FaceRectangle{Left: 20, Top: 20, Width: 40, Height: 40}}
	faceB := types.FaceModel{FaceID: "B", FaceRectangle: types.FaceRectangle{Left: 200, Top: 150, Width: 40, Height: 40}}
	fc := &sequencedClient{faces: []types.FaceModel{faceA, faceB}}
	sink := &gatedSink{entered: make(chan struct{}), release: make(chan struct{})}
	m := New(capture.NewImageSource(testFrame()), fc, DefaultOptions(), sink)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Poll(context.Background())
	}()
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle A never reached the sink")
	}

	go func() {
		defer wg.Done()
		m.Poll(context.Background())
	}()
	drawnB := waitFor(t, func() bool {
		return m.Canvas().NRGBAAt(200, 150).A != 0
	})
	close(sink.release)
	wg.Wait()

	if !drawnB {
		t.Fatal("cycle B never rendered")
	}
	if m.Canvas().NRGBAAt(20, 20).A != 0 {
		t.Fatal("canvas should show cycle B only")
	}
	last := sink.last()
	if last == nil || last.Faces[0].Face.FaceID != "B" {
		t.Errorf("Sink should end on the last render (B), got %+v", last)
	}
}
