// Package web serves the overlay canvas and the capture toggle over HTTP.
package web

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/menta2k/face-emotion/internal/log"
	"github.com/menta2k/face-emotion/pkg/processing"
	"github.com/menta2k/face-emotion/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Toggler is the capture loop as seen by the UI
type Toggler interface {
	Toggle() bool
	Enabled() bool
	Fired() int64
}

// Status is returned by GET /api/status and POST /api/toggle
type Status struct {
	Enabled   bool                 `json:"enabled"`
	Fired     int64                `json:"fired"`
	FrameID   string               `json:"frame_id,omitempty"`
	UpdatedAt *time.Time           `json:"updated_at,omitempty"`
	Faces     []types.FaceAnalysis `json:"faces"`
	Viewers   int                  `json:"viewers"`
}

// Server is the browser surface: a toggle button and the live canvas
type Server struct {
	app     *fiber.App
	addr    string
	toggler Toggler
	proc    *processing.Processor
	viewers *hub

	mu        sync.RWMutex
	canvas    []byte
	overlay   []byte
	frameID   string
	updatedAt time.Time
	faces     []types.FaceAnalysis
}

// NewServer wires the routes. addr is passed to Listen, e.g. ":8080".
func NewServer(addr string, toggler Toggler, proc *processing.Processor) *Server {
	s := &Server{
		addr:    addr,
		toggler: toggler,
		proc:    proc,
		viewers: newHub(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "face-emotion",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/canvas.png", s.handleCanvas)
	app.Get("/overlay.png", s.handleOverlay)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/toggle", s.handleToggle)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/canvas", websocket.New(s.handleCanvasWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen binds addr and serves until the server stops
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve handles connections from ln until the server stops
func (s *Server) Serve(ln net.Listener) error {
	log.Info(log.Fields{"addr": ln.Addr().String()}, "web UI listening")
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Publish keeps the latest canvas for HTTP clients and pushes the overlay to viewers
func (s *Server) Publish(ctx context.Context, snap *types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var canvas, overlay []byte
	var err error
	if snap.Canvas != nil {
		if canvas, _, err = s.proc.EncodeImage(snap.Canvas, "png", 0); err != nil {
			return err
		}
	}
	if snap.Overlay != nil {
		if overlay, _, err = s.proc.EncodeImage(snap.Overlay, "png", 0); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.canvas = canvas
	s.overlay = overlay
	s.frameID = snap.FrameID
	s.updatedAt = snap.CapturedAt
	s.faces = snap.Faces
	s.mu.Unlock()

	if overlay != nil {
		s.viewers.broadcast(overlay)
	} else if canvas != nil {
		s.viewers.broadcast(canvas)
	}
	return nil
}

func (s *Server) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Enabled: s.toggler.Enabled(),
		Fired:   s.toggler.Fired(),
		FrameID: s.frameID,
		Faces:   s.faces,
		Viewers: s.viewers.count(),
	}
	if st.Faces == nil {
		st.Faces = []types.FaceAnalysis{}
	}
	if !s.updatedAt.IsZero() {
		t := s.updatedAt
		st.UpdatedAt = &t
	}
	return st
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(indexHTML)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

func (s *Server) handleToggle(c *fiber.Ctx) error {
	enabled := s.toggler.Toggle()
	log.Info(log.Fields{"enabled": enabled}, "capture toggled from web UI")
	return c.JSON(s.status())
}

func (s *Server) handleCanvas(c *fiber.Ctx) error {
	s.mu.RLock()
	data := s.canvas
	s.mu.RUnlock()
	return sendPNG(c, data)
}

func (s *Server) handleOverlay(c *fiber.Ctx) error {
	s.mu.RLock()
	data := s.overlay
	s.mu.RUnlock()
	return sendPNG(c, data)
}

func sendPNG(c *fiber.Ctx, data []byte) error {
	if data == nil {
		return fiber.NewError(fiber.StatusNotFound, "nothing rendered yet")
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

func (s *Server) handleCanvasWS(c *websocket.Conn) {
	v := s.viewers.add(c)
	log.Debug(log.Fields{"viewers": s.viewers.count()}, "canvas viewer connected")

	s.mu.RLock()
	latest := s.overlay
	if latest == nil {
		latest = s.canvas
	}
	s.mu.RUnlock()
	if latest != nil {
		s.viewers.offer(v, latest)
	}

	s.viewers.run(v)
	log.Debug(log.Fields{"viewers": s.viewers.count()}, "canvas viewer disconnected")
}
