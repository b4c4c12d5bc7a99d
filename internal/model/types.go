package model

import "github.com/Brownie44l1/letters-api/internal/activation"

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

type PredictionRequest struct {
	Pixels []float64 `json:"pixels"`
}

type ImageRequest struct {
	Image  string `json:"image"`
	Invert bool   `json:"invert"`
}

type BatchRequest struct {
	Samples [][]float64 `json:"samples"`
}

type PredictionResponse struct {
	Letter        string             `json:"letter"`
	Confidence    float64            `json:"confidence"`
	Probabilities []float64          `json:"probabilities"`
	Activations   activation.Vectors `json:"activations"`
	Blank         bool               `json:"blank"`
}

type BatchItem struct {
	Index  int                 `json:"index"`
	Result *PredictionResponse `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

type BatchResponse struct {
	Results []BatchItem `json:"results"`
}
