package queue

import "github.com/and161185/capture-queue/internal/secret"

// Option adjusts a single secure-queue call.
type Option func(*callOptions)

type callOptions struct {
	secret *secret.Secret
}

// WithSecret derives the key from s instead of the provisioned device secret.
func WithSecret(s secret.Secret) Option {
	return func(o *callOptions) { o.secret = &s }
}

func collect(opts []Option) callOptions {
	var o callOptions
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
