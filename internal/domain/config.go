package domain

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model            string
	Dimensions       int
	ImageSize        int
	QueryInstruction string
}

// DefaultVectorConfig returns the default configuration tuned for ColQwen2.5 (128-dim token embeddings).
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:      "colqwen2.5-v0.2",
		Dimensions: 128,
		ImageSize:  224,
	}
}

// Retrieval defaults. The threshold is tied to the score scale of the default model.
const (
	DefaultTopK           = 10
	DefaultScoreThreshold = 2.0
)

// DefaultEvaluateThresholds are the candidate thresholds used for offline calibration.
func DefaultEvaluateThresholds() []float64 {
	return []float64{1.5, 2.0, 2.5, 3.0}
}
