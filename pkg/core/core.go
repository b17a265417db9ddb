package core

import "context"

// Source fetches the current state of one monitored resource.
type Source interface {
	// Resource is the snapshot identifier of the fetched state.
	Resource() string
	Fetch(ctx context.Context) ([]Entity, error)
}

// EventSubscriber consumes published events.
type EventSubscriber interface {
	OnEvent(event Event)
}

// Notifier delivers text to the configured chat.
type Notifier interface {
	EventSubscriber
	Notify(text string)
}

type NotifierWithStart interface {
	Notifier
	Start()
	Stop()
}

// CommandSpec describes a chat command for the bot menu.
type CommandSpec struct {
	Name        string
	Description string
}
