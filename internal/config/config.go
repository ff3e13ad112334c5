package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/menta2k/face-emotion/pkg/capture"
	"github.com/menta2k/face-emotion/pkg/faceapi"
	"github.com/menta2k/face-emotion/pkg/output"
	"github.com/menta2k/face-emotion/pkg/render"
)

// Environment variables read by ApplyEnv
const (
	EnvAPIKey   = "FACE_API_KEY"
	EnvEndpoint = "FACE_API_ENDPOINT"
)

// DefaultEndpoint is the regional detect URL used when none is configured
const DefaultEndpoint = "https://westeurope.api.cognitive.microsoft.com/face/v1.0/detect"

// Config holds the application configuration
type Config struct {
	FaceAPI FaceAPIConfig `json:"face_api"`
	Capture CaptureConfig `json:"capture"`
	Canvas  CanvasConfig  `json:"canvas"`
	Output  OutputConfig  `json:"output"`
	Web     WebConfig     `json:"web"`
	Log     LogConfig     `json:"log"`
}

// FaceAPIConfig holds the remote detection settings
type FaceAPIConfig struct {
	Endpoint          string `json:"endpoint" validate:"required,url"`
	SubscriptionKey   string `json:"subscription_key" validate:"required"`
	TimeoutSeconds    int    `json:"timeout_seconds" validate:"gte=0"`
	RequestsPerMinute int    `json:"requests_per_minute" validate:"gte=0"`
}

// CaptureConfig holds the frame source and polling settings
type CaptureConfig struct {
	Source     string `json:"source"`
	Device     int    `json:"device" validate:"gte=0"`
	Width      int    `json:"width" validate:"gte=36,lte=4096"`
	Height     int    `json:"height" validate:"gte=36,lte=4096"`
	IntervalMS int    `json:"interval_ms" validate:"gt=0"`
	Format     string `json:"format" validate:"oneof=jpg jpeg png"`
	Quality    int    `json:"quality" validate:"gte=1,lte=100"`
	AutoStart  bool   `json:"auto_start"`
}

// CanvasConfig holds the overlay drawing settings
type CanvasConfig struct {
	Width      int    `json:"width" validate:"gt=0"`
	Height     int    `json:"height" validate:"gt=0"`
	Color      string `json:"color" validate:"required"`
	TextOffset int    `json:"text_offset" validate:"gte=0"`
	LineHeight int    `json:"line_height" validate:"gt=0"`
}

// OutputConfig holds configuration for the file sink
type OutputConfig struct {
	Enabled  bool   `json:"enabled"`
	Dir      string `json:"dir" validate:"required_if=Enabled true"`
	Format   string `json:"format" validate:"oneof=png jpg jpeg webp"`
	Quality  int    `json:"quality" validate:"gte=1,lte=100"`
	Lossless bool   `json:"lossless"`
	Overlay  bool   `json:"overlay"`
}

// WebConfig holds the web UI settings
type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr" validate:"required_if=Enabled true"`
}

// LogConfig holds the logger settings
type LogConfig struct {
	Level   string `json:"level" validate:"oneof=trace debug info warn warning error"`
	File    string `json:"file"`
	NoColor bool   `json:"no_color"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		FaceAPI: FaceAPIConfig{
			Endpoint:       DefaultEndpoint,
			TimeoutSeconds: 30,
		},
		Capture: CaptureConfig{
			Source:     capture.SourceWebcam,
			Width:      640,
			Height:     480,
			IntervalMS: 3000,
			Format:     "jpg",
			Quality:    90,
		},
		Canvas: CanvasConfig{
			Width:      640,
			Height:     480,
			Color:      "#000000",
			TextOffset: 10,
			LineHeight: 10,
		},
		Output: OutputConfig{
			Enabled: true,
			Dir:     "./output",
			Format:  "png",
			Quality: 90,
			Overlay: true,
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists and falls back to the defaults otherwise
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadFromFile(filename)
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the file may hold the subscription key
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads a .env file into the process environment if one is present.
// Variables already set are left alone.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides the Face API settings from the environment
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.FaceAPI.SubscriptionKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEndpoint)); v != "" {
		c.FaceAPI.Endpoint = v
	}
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := render.ParseHexColor(c.Canvas.Color); err != nil {
		return fmt.Errorf("invalid config: canvas.color: %w", err)
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "face-emotion", "config.json")
}

// Interval is the capture period
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Capture.IntervalMS) * time.Millisecond
}

// FaceAPIClientConfig converts to the client settings
func (c *Config) FaceAPIClientConfig() faceapi.Config {
	fc := faceapi.DefaultConfig(c.FaceAPI.Endpoint, c.FaceAPI.SubscriptionKey)
	if c.FaceAPI.TimeoutSeconds > 0 {
		fc.Timeout = time.Duration(c.FaceAPI.TimeoutSeconds) * time.Second
	}
	fc.RequestsPerMinute = c.FaceAPI.RequestsPerMinute
	return fc
}

// CaptureSourceConfig converts to the source settings
func (c *Config) CaptureSourceConfig() capture.Config {
	return capture.Config{
		Source: c.Capture.Source,
		Device: c.Capture.Device,
		Width:  c.Capture.Width,
		Height: c.Capture.Height,
	}
}

// RenderStyle converts to the canvas style. Validate has already checked the color.
func (c *Config) RenderStyle() render.Style {
	style := render.DefaultStyle()
	if col, err := render.ParseHexColor(c.Canvas.Color); err == nil {
		style.Color = col
	}
	style.TextOffset = c.Canvas.TextOffset
	style.LineHeight = c.Canvas.LineHeight
	return style
}

// FileSinkConfig converts to the file sink settings
func (c *Config) FileSinkConfig() output.FileConfig {
	return output.FileConfig{
		Dir:      c.Output.Dir,
		Format:   c.Output.Format,
		Quality:  c.Output.Quality,
		Lossless: c.Output.Lossless,
		Overlay:  c.Output.Overlay,
	}
}
