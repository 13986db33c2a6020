package health

import "context"

// LivenessChecker checks one population facade's liveness.
type LivenessChecker interface {
	Live(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// StorePinger checks cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}
