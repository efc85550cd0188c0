package events

// EventType represents the type of character event
type EventType string

// Event is the base interface for all character events
type Event interface {
	GetType() EventType
	IsCancelled() bool
	Cancel()
}

// BaseEvent provides common implementation for all events
type BaseEvent struct {
	Type      EventType
	Cancelled bool
}

func (e *BaseEvent) GetType() EventType { return e.Type }
func (e *BaseEvent) IsCancelled() bool  { return e.Cancelled }
func (e *BaseEvent) Cancel()            { e.Cancelled = true }

// StateChanged is published by the character store after a mutation commits.
// Which of Key, Level and Amount are set depends on the event type.
type StateChanged struct {
	BaseEvent
	// Key names the spell, skill, ability, effect or charge involved.
	Key    string
	Level  int
	Amount int
}

// NewStateChanged builds a StateChanged event
func NewStateChanged(eventType EventType, key string, level, amount int) *StateChanged {
	return &StateChanged{
		BaseEvent: BaseEvent{Type: eventType},
		Key:       key,
		Level:     level,
		Amount:    amount,
	}
}

// ListenerFunc adapts a function to EventListener
type ListenerFunc struct {
	Name     string
	Order    int
	Callback func(Event) error
}

func (l *ListenerFunc) ID() string                { return l.Name }
func (l *ListenerFunc) Priority() int             { return l.Order }
func (l *ListenerFunc) HandleEvent(e Event) error { return l.Callback(e) }
