package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an upstream model provider.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
