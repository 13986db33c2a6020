package domain

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Provider            string
	Model               string
	Dimensions          int
	DistanceMetric      string
	DocumentInstruction string
	QueryInstruction    string
	MaxRecordSizeKB     int
}

// DefaultVectorConfig returns the default configuration: the local hashing
// model, so the service runs with no external provider. Instructions default
// to empty on both sides to keep identical texts embedding identically.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Provider:            "hashemb",
		Model:               "hashemb",
		Dimensions:          384,
		DistanceMetric:      "cosine",
		DocumentInstruction: "",
		QueryInstruction:    "",
		MaxRecordSizeKB:     64,
	}
}
