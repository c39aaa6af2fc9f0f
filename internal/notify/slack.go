package notify

import (
	"fmt"
	"time"

	"github.com/slack-go/slack"
)

// SlackNotifier posts failed report executions to a channel so operators
// notice delivery problems without tailing logs.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

func (s *SlackNotifier) NotifyFailure(scheduleID uint, name, errMsg string) error {
	attachment := slack.Attachment{
		Color: "#ff0000",
		Title: fmt.Sprintf("Scheduled report failed: %s", name),
		Fields: []slack.AttachmentField{
			{
				Title: "Schedule ID",
				Value: fmt.Sprintf("%d", scheduleID),
				Short: true,
			},
			{
				Title: "Time",
				Value: time.Now().Format(time.RFC3339),
				Short: true,
			},
			{
				Title: "Error",
				Value: errMsg,
				Short: false,
			},
		},
		Footer: "Pulseboard Report Engine",
	}

	_, _, err := s.client.PostMessage(
		s.channel,
		slack.MsgOptionAttachments(attachment),
	)
	return err
}
