package relay

import (
	"context"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
)

// Kind names a notification template.
type Kind string

const (
	KindLogin    Kind = "login"
	KindFollowUp Kind = "follow_up"
)

// Choice is one operator button: a label and the action token it sends back.
type Choice struct {
	Label string
	Token string
}

// Notification is the payload handed to a Messenger.
type Notification struct {
	Kind      Kind
	SessionID string
	Text      string
	Choices   []Choice
}

// Messenger delivers notifications to the operator and acknowledges their answers.
// Send must return nil only once the channel has accepted the message.
type Messenger interface {
	Send(ctx context.Context, n Notification) error
	Acknowledge(ctx context.Context, handle string) error
}

// StatusListener is told about every applied transition. Implementations must not block.
type StatusListener interface {
	SessionChanged(id string, state approval.State)
}
