package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Brownie44l1/letters-api/internal/preprocess"
	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime prepares the process-wide ONNX Runtime environment. It must run
// once before any Server is created.
func InitRuntime(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

func ShutdownRuntime() error {
	return ort.DestroyEnvironment()
}

// Server runs the letter model through ONNX Runtime. The session owns one
// input/output tensor pair, so Predict calls are serialized.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewServer(modelPath, metadataPath string) (*Server, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)
	if n := inputShape.FlattenedSize(); n != preprocess.Pixels {
		return nil, fmt.Errorf("model input shape %v holds %d values, want %d", metadata.InputShape, n, preprocess.Pixels)
	}
	if n := outputShape.FlattenedSize(); n != int64(len(metadata.Classes)) {
		return nil, fmt.Errorf("model output shape %v does not match %d classes", metadata.OutputShape, len(metadata.Classes))
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// LoadMetadata reads the JSON sidecar describing the exported model and
// fills in the defaults for a 28x28x1 A-Z classifier.
func LoadMetadata(path string) (Metadata, error) {
	var metadata Metadata
	if path != "" {
		metaFile, err := os.ReadFile(path)
		if err != nil {
			return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
		}
		if err := json.Unmarshal(metaFile, &metadata); err != nil {
			return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
		}
	}
	if len(metadata.Classes) == 0 {
		metadata.Classes = Alphabet()
	}
	if len(metadata.InputShape) == 0 {
		metadata.InputShape = []int64{1, preprocess.Size, preprocess.Size, 1}
	}
	if len(metadata.OutputShape) == 0 {
		metadata.OutputShape = []int64{1, int64(len(metadata.Classes))}
	}
	if metadata.InputName == "" {
		metadata.InputName = "input"
	}
	if metadata.OutputName == "" {
		metadata.OutputName = "output"
	}
	if metadata.ImageSize == 0 {
		metadata.ImageSize = preprocess.Size
	}
	return metadata, nil
}

func (s *Server) Predict(ctx context.Context, t *preprocess.Tensor) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), t.Flatten())

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := s.outputTensor.GetData()
	probs := make([]float64, len(outputData))
	for i, val := range outputData {
		probs[i] = float64(val)
	}
	return probs, nil
}

func (s *Server) Classes() []string {
	return s.Metadata.Classes
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		return err
	}
	return nil
}
