package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	faceemotion "github.com/menta2k/face-emotion"
	"github.com/menta2k/face-emotion/internal/config"
	"github.com/menta2k/face-emotion/internal/log"
	"github.com/menta2k/face-emotion/pkg/capture"
	"github.com/menta2k/face-emotion/pkg/faceapi"
	"github.com/menta2k/face-emotion/pkg/output"
	"github.com/menta2k/face-emotion/pkg/processing"
	"github.com/menta2k/face-emotion/pkg/web"
)

var (
	watchSource   string
	watchInterval time.Duration
	watchOut      string
	watchAddr     string
	watchNoWeb    bool
	watchNoFiles  bool
	watchStart    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the camera and keep the face overlay up to date",
	Long: `Grabs a frame every interval while capture is on, sends it to the Face API and
redraws the overlay. Capture starts off: press Enter (or use the web UI button)
to toggle it, type q and Enter to quit.

The default source is the webcam, which needs a binary built with -tags gocv
(OpenCV). Without it, pass --source with an image file, URL or directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyWatchFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runWatch(cmd.Context(), cfg, os.Stdin)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSource, "source", "", "webcam, an image file, a URL or a directory of images")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "capture period (default from config, 3s)")
	watchCmd.Flags().StringVar(&watchOut, "out", "", "directory for canvas.png and the overlay")
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "web UI listen address")
	watchCmd.Flags().BoolVar(&watchNoWeb, "no-web", false, "do not start the web UI")
	watchCmd.Flags().BoolVar(&watchNoFiles, "no-files", false, "do not write the overlay to disk")
	watchCmd.Flags().BoolVar(&watchStart, "start", false, "enable capture immediately")
	rootCmd.AddCommand(watchCmd)
}

func applyWatchFlags(cmd *cobra.Command, c *config.Config) {
	if watchSource != "" {
		c.Capture.Source = watchSource
	}
	if watchInterval > 0 {
		c.Capture.IntervalMS = int(watchInterval / time.Millisecond)
	}
	if watchOut != "" {
		c.Output.Dir = watchOut
	}
	if watchAddr != "" {
		c.Web.Addr = watchAddr
	}
	if watchNoWeb {
		c.Web.Enabled = false
	}
	if watchNoFiles {
		c.Output.Enabled = false
	}
	if cmd.Flags().Changed("start") {
		c.Capture.AutoStart = watchStart
	}
}

func runWatch(ctx context.Context, c *config.Config, in io.Reader) error {
	proc := processing.NewProcessor()

	api, err := faceapi.NewClient(c.FaceAPIClientConfig())
	if err != nil {
		return err
	}

	src, err := capture.NewSource(ctx, c.CaptureSourceConfig(), proc)
	if err != nil {
		return sourceError(err)
	}

	opts := faceemotion.Options{
		Interval:     c.Interval(),
		CanvasWidth:  c.Canvas.Width,
		CanvasHeight: c.Canvas.Height,
		Style:        c.RenderStyle(),
		Format:       c.Capture.Format,
		Quality:      c.Capture.Quality,
		AutoStart:    c.Capture.AutoStart,
	}
	monitor := faceemotion.New(src, api, opts)

	if c.Output.Enabled {
		sink, err := output.NewFileSink(c.FileSinkConfig(), proc)
		if err != nil {
			src.Close()
			return err
		}
		monitor.AddSink(sink)
		log.Info(log.Fields{"canvas": sink.CanvasPath()}, "writing overlay to disk")
	}

	var server *web.Server
	serverErr := make(chan error, 1)
	if c.Web.Enabled {
		server = web.NewServer(c.Web.Addr, monitor, proc)
		monitor.AddSink(server)
		go func() {
			serverErr <- server.Listen()
		}()
		fmt.Printf("Web UI: http://%s\n", c.Web.Addr)
	}

	monitor.Start(ctx)
	fmt.Println("Press Enter to toggle capture, q + Enter to quit.")

	quit := make(chan struct{})
	go readCommands(in, monitor, quit)

	select {
	case <-ctx.Done():
	case <-quit:
	case err = <-serverErr:
		if err != nil {
			err = fmt.Errorf("web UI stopped: %w", err)
		}
	}

	monitor.Close()
	monitor.Wait()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := server.Shutdown(shutdownCtx); serr != nil {
			log.Warn(log.Fields{"error": serr.Error()}, "web UI shutdown failed")
		}
	}
	log.Info(log.Fields{"fired": monitor.Fired()}, "capture loop stopped")
	return err
}

// sourceError adds the way out when the webcam is compiled out
func sourceError(err error) error {
	if errors.Is(err, capture.ErrWebcamUnavailable) {
		return fmt.Errorf("%w; rebuild with -tags gocv or pass --source <image|url|dir>", err)
	}
	return err
}

// toggler is what the stdin loop drives
type toggler interface {
	Toggle() bool
}

// readCommands toggles capture on each empty line and closes quit on "q".
// EOF leaves quit open so a detached stdin does not stop the loop.
func readCommands(in io.Reader, t toggler, quit chan<- struct{}) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "q", "quit", "exit":
			close(quit)
			return
		case "":
			if t.Toggle() {
				fmt.Println("capture on")
			} else {
				fmt.Println("capture off")
			}
		}
	}
}
