package steppal

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"
)

var _ Publisher = &LogPublisher{}

// LogPublisher writes every event to the logger of the operation that produced it.
type LogPublisher struct{}

func (p *LogPublisher) Send(ctx context.Context, logger runtime.Logger, userID string, events []*Event) {
	for _, event := range events {
		fields := map[string]interface{}{
			"user_id":  userID,
			"event":    string(event.Type),
			"time_sec": event.TimeSec,
		}
		switch event.Type {
		case EventTypeLevelUp:
			fields["level"] = event.Level
		case EventTypeEvolved:
			fields["stage"] = event.Stage.String()
		default:
			fields["id"] = event.Id
		}
		logger.WithFields(fields).Info("steppal event %s", event.Type)
	}
}

var _ Publisher = &NotificationPublisher{}

// NotificationPublisher forwards events to the user as persistent in-app notifications.
type NotificationPublisher struct {
	nk Notifier
}

// Notifier is the part of runtime.NakamaModule used by NotificationPublisher.
type Notifier interface {
	NotificationSend(ctx context.Context, userID, subject string, content map[string]interface{}, code int, sender string, persistent bool) error
}

const (
	notificationCodeLevelUp = 100 + iota
	notificationCodeEvolved
	notificationCodeChallengeCompleted
	notificationCodeAchievementUnlocked
)

func NewNotificationPublisher(nk Notifier) *NotificationPublisher {
	return &NotificationPublisher{nk: nk}
}

func (p *NotificationPublisher) Send(ctx context.Context, logger runtime.Logger, userID string, events []*Event) {
	for _, event := range events {
		var (
			subject string
			code    int
			content = map[string]interface{}{"time_sec": event.TimeSec}
		)
		switch event.Type {
		case EventTypeLevelUp:
			subject, code = "Level up!", notificationCodeLevelUp
			content["level"] = event.Level
		case EventTypeEvolved:
			subject, code = "Your pet evolved!", notificationCodeEvolved
			content["stage"] = event.Stage.String()
		case EventTypeChallengeCompleted:
			subject, code = "Challenge completed!", notificationCodeChallengeCompleted
			content["id"] = event.Id
		case EventTypeAchievementUnlocked:
			subject, code = "Achievement unlocked!", notificationCodeAchievementUnlocked
			content["id"] = event.Id
		default:
			continue
		}
		if err := p.nk.NotificationSend(ctx, userID, subject, content, code, "", true); err != nil {
			logger.Warn("Failed to send %s notification to user %s: %v", event.Type, userID, err)
		}
	}
}
