package model

type Metadata struct {
	InputShape    []int64  `json:"input_shape"`
	OutputShape   []int64  `json:"output_shape"`
	InputName     string   `json:"input_name"`
	OutputName    string   `json:"output_name"`
	Layout        string   `json:"layout"`
	Preprocessing string   `json:"preprocessing"`
	ImageSize     int      `json:"image_size"`
	ApplySoftmax  bool     `json:"apply_softmax"`
	Classes       []string `json:"classes"`
}

// Prediction is the score of one class.
type Prediction struct {
	Index int     `json:"index"`
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// PredictionVector holds one prediction per class, in class-index order.
type PredictionVector []Prediction

// FilteredResult is sorted by descending score; every score is at least the
// threshold it was filtered with.
type FilteredResult struct {
	Predictions []Prediction `json:"predictions"`
	TopK        int          `json:"top_k"`
	Threshold   float32      `json:"threshold"`
}

// Empty reports that no class reached the threshold. This is a valid outcome.
func (r FilteredResult) Empty() bool {
	return len(r.Predictions) == 0
}

type PredictionRequest struct {
	Image     []float32 `json:"image"`
	TopK      int       `json:"top_k,omitempty"`
	Threshold float32   `json:"threshold,omitempty"`
}

type PredictionResponse struct {
	Class       string       `json:"class"`
	Confidence  float32      `json:"confidence"`
	Predictions []Prediction `json:"predictions"`
	InferenceMs float64      `json:"inference_ms"`
}
