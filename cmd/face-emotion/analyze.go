package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	faceemotion "github.com/menta2k/face-emotion"
	"github.com/menta2k/face-emotion/internal/utils"
	"github.com/menta2k/face-emotion/pkg/capture"
	"github.com/menta2k/face-emotion/pkg/emotion"
	"github.com/menta2k/face-emotion/pkg/faceapi"
	"github.com/menta2k/face-emotion/pkg/processing"
)

var (
	analyzeOut    string
	analyzeFormat string
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image|url>",
	Short: "Run one detection on an image and save the overlay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()
		proc := processing.NewProcessor()

		img, err := proc.LoadImageSmart(ctx, args[0])
		if err != nil {
			return err
		}

		api, err := faceapi.NewClient(cfg.FaceAPIClientConfig())
		if err != nil {
			return err
		}

		opts := faceemotion.DefaultOptions()
		opts.Style = cfg.RenderStyle()
		opts.Format = cfg.Capture.Format
		opts.Quality = cfg.Capture.Quality
		monitor := faceemotion.New(capture.NewImageSource(img), api, opts)
		defer monitor.Close()

		snap, err := monitor.Analyze(ctx, img)
		if err != nil {
			return err
		}

		if analyzeJSON {
			data, err := json.MarshalIndent(snap.Faces, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "FACE\tBOX\tAGE\tGENDER\tEMOTION")
			for _, f := range snap.Faces {
				r := f.Face.FaceRectangle
				top := "-"
				if e, ok := f.TopEmotion(); ok {
					top = fmt.Sprintf("%s %d%%", e.Emotion, emotion.Percent(e.Value))
				}
				fmt.Fprintf(w, "%s\t%dx%d@%d,%d\t%v\t%s\t%s\n", f.Face.FaceID, r.Width, r.Height, r.Left, r.Top,
					f.Face.FaceAttributes.Age, f.Face.FaceAttributes.Gender, top)
			}
			w.Flush()
		}

		if err := utils.EnsureDir(analyzeOut); err != nil {
			return err
		}
		path := utils.GenerateOutputFilename(args[0], analyzeOut, "_faces", analyzeFormat)
		if err := proc.SaveImage(snap.Overlay, path, analyzeFormat, cfg.Output.Quality, cfg.Output.Lossless); err != nil {
			return err
		}
		size := "?"
		if fi, err := os.Stat(path); err == nil {
			size = utils.FormatFileSize(fi.Size())
		}
		fmt.Fprintf(os.Stderr, "%d face(s), wrote %s (%s)\n", len(snap.Faces), path, size)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "out", "output directory")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "png", "overlay format: png, jpg or webp")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the faces as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
