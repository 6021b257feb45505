package telegram

import (
	"context"
	"fmt"

	"degree_plan_review/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// Notifier delivers review notices to students who linked their Telegram account.
type Notifier struct {
	client Client
	logger *logrus.Entry
}

func NewNotifier(client Client, logger *logrus.Entry) *Notifier {
	return &Notifier{client: client, logger: logger}
}

func (n *Notifier) Name() string { return "telegram" }

func (n *Notifier) Send(ctx context.Context, notice notification.Notice) error {
	if notice.StudentTelegramID == 0 {
		n.logger.WithFields(logrus.Fields{
			"notice_id":  notice.ID,
			"student_id": notice.StudentID,
		}).Debug("Student has no linked Telegram account, skipping")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text := notice.Subject() + "\n\n" + notice.Body()
	if err := n.client.SendMessage(notice.StudentTelegramID, text, nil); err != nil {
		return fmt.Errorf("send telegram message to student %d: %w", notice.StudentID, err)
	}
	return nil
}
