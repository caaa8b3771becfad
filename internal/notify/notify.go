// Package notify delivers one-shot account notifications off the request path.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

type Kind string

const KindWelcome Kind = "welcome"

// Message is a single notification addressed to one account.
type Message struct {
	Kind     Kind
	UserID   int64
	Username string
	Email    string
	FullName string
}

// Notifier delivers a message. Implementations must honour ctx cancellation.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier records notifications as structured log lines. It stands in
// for a mail transport.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.WithFields(logrus.Fields{
		"kind":     msg.Kind,
		"user_id":  msg.UserID,
		"username": msg.Username,
		"email":    msg.Email,
	}).Info("notification sent")
	return nil
}
