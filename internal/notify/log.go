package notify

import (
	"context"

	"github.com/authz/server/internal/logging"
)

// LogNotifier renders messages and logs them instead of sending. It is used
// when no mail server is configured. The link is logged so local sign-in
// flows stay usable.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notify")}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if _, err := Render(msg); err != nil {
		return err
	}
	n.log.Warn(ctx, "email not delivered, no mail server configured",
		"to", MaskEmail(msg.To), "subject", msg.Subject, "template", msg.Template, "link", msg.Link)
	return nil
}
