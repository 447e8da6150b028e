package service

import "context"

// Service is run by app.App until shutdown.
type Service interface {
	// Run the Service until the given context.Context is done.
	Run(ctx context.Context) error
}

// Func is an adapter that allows using a plain function as Service.
type Func func(ctx context.Context) error

// Run calls f.
func (f Func) Run(ctx context.Context) error {
	return f(ctx)
}
