package notify

import "context"

// Channel delivers a rendered message to a single recipient.
type Channel interface {
	Send(ctx context.Context, recipient, subject, content string) error
}
