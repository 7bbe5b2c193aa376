package internal

import "github.com/starford/ticktock/internal/entrystore"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	store  entrystore.Store
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStore supplies an already opened store instead of the configured one.
// The caller keeps ownership and closes it.
func WithStore(s entrystore.Store) Option {
	return func(a *application) {
		a.store = s
	}
}
