package ports

import "github.com/bnema/zalo-accounts/internal/domain"

type EventPublisher interface {
	Publish(event domain.Event)
}

type EventBus interface {
	EventPublisher
	Subscribe(fn func(domain.Event)) (unsubscribe func())
}
