package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Brownie44l1/letters-api/internal/model"
	"github.com/Brownie44l1/letters-api/internal/preprocess"
)

func centerDot() []float64 {
	raw := make([]float64, preprocess.Pixels)
	raw[14*preprocess.Size+14] = 255
	return raw
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParsePixelsShapes(t *testing.T) {
	flat, err := parsePixels([]byte(`[1, 2, 3]`))
	if err != nil || len(flat) != 3 {
		t.Fatalf("bare array: %v %v", flat, err)
	}
	wrapped, err := parsePixels([]byte(`{"pixels": [4, 5]}`))
	if err != nil || len(wrapped) != 2 || wrapped[1] != 5 {
		t.Fatalf("wrapped: %v %v", wrapped, err)
	}
	if _, err := parsePixels([]byte(`nope`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNormalizeCommandRendersGrid(t *testing.T) {
	body, _ := json.Marshal(centerDot())
	out, err := run(t, string(body), "normalize", "--pixels", "-")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != preprocess.Size+1 {
		t.Fatalf("expected %d lines, got %d", preprocess.Size+1, len(lines))
	}
	if !strings.HasPrefix(lines[preprocess.Size], "box rows") {
		t.Fatalf("missing summary line: %q", lines[preprocess.Size])
	}
}

func TestNormalizeCommandJSON(t *testing.T) {
	body, _ := json.Marshal(model.PredictionRequest{Pixels: make([]float64, preprocess.Pixels)})
	out, err := run(t, string(body), "normalize", "--pixels", "-", "--json")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	var grid [][]float64
	if err := json.Unmarshal([]byte(out), &grid); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(grid) != preprocess.Size || len(grid[0]) != preprocess.Size {
		t.Fatalf("unexpected grid shape")
	}
}

func TestPredictCommandWithPlaceholderModel(t *testing.T) {
	body, _ := json.Marshal(centerDot())
	out, err := run(t, string(body), "predict", "--pixels", "-")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	var res model.PredictionResponse
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Letter != "A" || res.Blank {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestCommandsRequireInput(t *testing.T) {
	if _, err := run(t, "", "normalize"); err == nil {
		t.Fatalf("expected missing input error")
	}
	if _, err := run(t, "", "predict", "--pixels", "a.json", "--image", "b.png"); err == nil {
		t.Fatalf("expected conflicting input error")
	}
	if _, err := run(t, "[1,2,3]", "predict", "--pixels", "-"); err == nil {
		t.Fatalf("expected length error")
	}
}
