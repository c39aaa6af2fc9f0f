package mailer

import (
	"io"

	"gopkg.in/gomail.v2"

	"github.com/pulseboard/pulseboard/internal/report"
)

// Mailer delivers rendered reports over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func New(host string, port int, from, username, password string) *Mailer {
	if username == "" {
		username = from
	}
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *Mailer) Send(to, subject, body string, attachments []*report.Artifact) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	for _, att := range attachments {
		data := att.Data
		msg.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {att.MIME}}),
		)
	}

	return m.dialer.DialAndSend(msg)
}
