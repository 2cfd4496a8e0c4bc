package ports

import "context"

// SecretStore holds opaque values such as persisted sessions. Get returns an
// error wrapping domain.ErrSecretNotFound when the key is absent.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
