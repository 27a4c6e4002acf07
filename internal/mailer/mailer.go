// Package mailer 对外发信的抽象。线上可替换为真实邮件网关，
// 开发环境默认实现只写日志。
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Message 一封待发送的邮件
type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m *Message) error
}

type logMailer struct {
	log *zap.Logger
}

// NewLogMailer 日志发信器，不真正发送
func NewLogMailer(log *zap.Logger) Mailer {
	return &logMailer{log: log}
}

func (m *logMailer) Send(_ context.Context, msg *Message) error {
	m.log.Info("mail sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
