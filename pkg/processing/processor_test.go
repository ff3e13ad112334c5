package processing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestImage creates a gradient test frame
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func TestEncodeFrameAndDecodeDataURL(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(64, 48)

	dataURL, err := p.EncodeFrame(img, "jpg", 90)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if !strings.HasPrefix(dataURL, "data:image/jpeg;base64,") {
		t.Errorf("Unexpected data URL prefix: %.30s", dataURL)
	}

	blob, err := p.DecodeDataURL(dataURL)
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	// JPEG SOI marker
	if len(blob) < 2 || blob[0] != 0xFF || blob[1] != 0xD8 {
		t.Errorf("Blob is not a JPEG stream")
	}

	decoded, err := p.DecodeImage(blob)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Errorf("Encoder must not resize, got %v", decoded.Bounds())
	}
}

func TestEncodeFramePNG(t *testing.T) {
	p := NewProcessor()
	dataURL, err := p.EncodeFrame(createTestImage(40, 40), "png", 0)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Errorf("Unexpected data URL prefix: %.30s", dataURL)
	}
}

func TestDecodeDataURLErrors(t *testing.T) {
	p := NewProcessor()
	bad := []string{
		"data:image/png;base64",
		"data:image/png,rawtext",
		"data:image/png;base64,!!!",
	}
	for _, in := range bad {
		if _, err := p.DecodeDataURL(in); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}

func TestValidateFrame(t *testing.T) {
	p := NewProcessor()
	if err := p.ValidateFrame(createTestImage(640, 480)); err != nil {
		t.Errorf("640x480 should be valid: %v", err)
	}
	if err := p.ValidateFrame(createTestImage(20, 480)); !errors.Is(err, ErrFrameSize) {
		t.Errorf("Expected ErrFrameSize, got %v", err)
	}
}

func TestFitToResolution(t *testing.T) {
	p := NewProcessor()
	out := p.FitToResolution(createTestImage(800, 800), 640, 480)
	if out.Bounds().Dx() != 640 || out.Bounds().Dy() != 480 {
		t.Errorf("Expected 640x480, got %v", out.Bounds())
	}

	same := createTestImage(640, 480)
	if p.FitToResolution(same, 640, 480) != same {
		t.Error("Image already at resolution should be returned unchanged")
	}
}

func TestOverlay(t *testing.T) {
	p := NewProcessor()
	frame := createTestImage(100, 80)
	canvas := image.NewNRGBA(image.Rect(0, 0, 100, 80))
	canvas.Set(5, 5, color.NRGBA{0, 255, 0, 255})

	out := p.Overlay(frame, canvas)
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 80 {
		t.Fatalf("Overlay changed size: %v", out.Bounds())
	}
	r, g, b, _ := out.At(5, 5).RGBA()
	if r != 0 || g != 0xffff || b != 0 {
		t.Errorf("Expected green pixel from canvas, got %v %v %v", r, g, b)
	}
	// Transparent canvas pixels keep the frame
	fr, fg, fb, _ := frame.At(50, 50).RGBA()
	or, og, ob, _ := out.At(50, 50).RGBA()
	if fr>>8 != or>>8 || fg>>8 != og>>8 || fb>>8 != ob>>8 {
		t.Errorf("Frame pixel not preserved under transparent canvas")
	}
}

func TestLoadAndSaveImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "frame."+format)
		if err := p.SaveImage(createTestImage(50, 40), path, format, 90, false); err != nil {
			t.Fatalf("SaveImage %s failed: %v", format, err)
		}
		img, err := p.LoadImage(path)
		if err != nil {
			t.Fatalf("LoadImage %s failed: %v", format, err)
		}
		if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 40 {
			t.Errorf("%s: unexpected bounds %v", format, img.Bounds())
		}
	}
}

func TestLoadImageSmartURL(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, createTestImage(30, 20))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("nope"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	p := NewProcessor()
	img, err := p.LoadImageSmart(context.Background(), srv.URL+"/frame.png")
	if err != nil {
		t.Fatalf("LoadImageSmart failed: %v", err)
	}
	if img.Bounds().Dx() != 30 {
		t.Errorf("Unexpected width %d", img.Bounds().Dx())
	}

	if _, err := p.LoadImageSmart(context.Background(), srv.URL+"/text"); err == nil {
		t.Error("Expected error for non-image content type")
	}
}

func TestLoadImageMissing(t *testing.T) {
	p := NewProcessor()
	if _, err := p.LoadImage(filepath.Join(os.TempDir(), "does-not-exist.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSaveImageWebPReportsWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	if err := NewProcessor().SaveImage(createTestImage(20, 20), "/dev/full", "webp", 80, false); err == nil {
		t.Error("Expected an error when the webp file cannot be written")
	}
}
