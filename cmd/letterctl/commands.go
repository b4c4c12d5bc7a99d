package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Brownie44l1/letters-api/internal/imageio"
	"github.com/Brownie44l1/letters-api/internal/model"
	"github.com/Brownie44l1/letters-api/internal/preprocess"
	"github.com/spf13/cobra"
)

type inputFlags struct {
	pixels string
	image  string
	invert bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pixels, "pixels", "", "JSON file holding 784 values, or {\"pixels\": [...]}; - reads stdin")
	cmd.Flags().StringVar(&f.image, "image", "", "PNG, JPEG, GIF or WebP drawing")
	cmd.Flags().BoolVar(&f.invert, "invert", false, "treat the image as dark strokes on a light background")
}

func (f *inputFlags) load(stdin io.Reader) ([]float64, error) {
	switch {
	case f.pixels != "" && f.image != "":
		return nil, errors.New("use either --pixels or --image, not both")
	case f.image != "":
		raw, err := os.ReadFile(f.image)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		img, _, err := imageio.Decode(raw, imageio.DefaultMaxSide)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return imageio.Pixels(img, f.invert), nil
	case f.pixels != "":
		var data []byte
		var err error
		if f.pixels == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(f.pixels)
		}
		if err != nil {
			return nil, fmt.Errorf("read pixels: %w", err)
		}
		return parsePixels(data)
	default:
		return nil, errors.New("one of --pixels or --image is required")
	}
}

// parsePixels accepts a bare JSON array or the /predict request body.
func parsePixels(data []byte) ([]float64, error) {
	var flat []float64
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}
	var req model.PredictionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse pixels: %w", err)
	}
	return req.Pixels, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "letterctl",
		Short:         "Inspect the handwritten letter pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newNormalizeCmd(), newPredictCmd())
	return root
}

func newNormalizeCmd() *cobra.Command {
	var in inputFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Print the canonical 28x28 tensor for a drawing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := in.load(cmd.InOrStdin())
			if err != nil {
				return err
			}
			t, err := preprocess.Normalize(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(t.Values())
			}
			fmt.Fprint(out, render(&t))
			if box, ok := preprocess.DetectBox(&t, preprocess.DetectThreshold); ok {
				cy, cx, _ := t.CenterOfMass()
				fmt.Fprintf(out, "box rows %d-%d cols %d-%d, centroid (%.2f, %.2f)\n",
					box.MinRow, box.MaxRow, box.MinCol, box.MaxCol, cy, cx)
			} else {
				fmt.Fprintln(out, "blank drawing")
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the tensor as a JSON 28x28 array")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var in inputFlags
	var modelPath, metadataPath, runtimeLib string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a drawing through the model and print the response JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := in.load(cmd.InOrStdin())
			if err != nil {
				return err
			}

			var c model.Classifier = model.Uniform()
			if modelPath != "" {
				if err := model.InitRuntime(runtimeLib); err != nil {
					return err
				}
				defer model.ShutdownRuntime()
				srv, err := model.NewServer(modelPath, metadataPath)
				if err != nil {
					return err
				}
				defer srv.Close()
				c = srv
			}

			result, err := model.Recognize(context.Background(), c, raw)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&modelPath, "model", "", "ONNX model; without it a uniform placeholder model answers")
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "model metadata JSON")
	cmd.Flags().StringVar(&runtimeLib, "onnxruntime-lib", os.Getenv("ONNXRUNTIME_LIB"), "path to the ONNX Runtime shared library")
	return cmd
}

// render draws the tensor with one glyph per cell, darkest to brightest.
func render(t *preprocess.Tensor) string {
	const ramp = " .:-=+*#%@"
	var b strings.Builder
	for r := range t {
		for c := range t[r] {
			idx := int(t[r][c] * float64(len(ramp)-1))
			b.WriteByte(ramp[min(max(idx, 0), len(ramp)-1)])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
