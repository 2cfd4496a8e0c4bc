package ports

import "github.com/bnema/winspay-gate/internal/domain"

type Lifecycle interface {
	OnForegroundResume(handler func()) Unsubscribe
}

type Navigator interface {
	Navigate(route domain.Route)
}
