package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/gotomicro/ego/core/econf"
)

// Sender 通过 SMTP 发送纯文本告警邮件
type Sender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSender() *Sender {
	host := econf.GetString("email.host")
	port := econf.GetInt("email.port")
	username := econf.GetString("email.username")
	password := econf.GetString("email.password")

	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &Sender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: econf.GetString("email.from"),
		auth: auth,
	}
}

func (s *Sender) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.from, to, subject, body)
	err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
	if err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}
