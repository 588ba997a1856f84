package campaign

import "context"

// Message is one outbound HTML email
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers email. Implemented by the infrastructure mail senders.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
