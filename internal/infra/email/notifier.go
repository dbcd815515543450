package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	to     string
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from, to string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, to: to, send: smtp.SendMail, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, run *entity.ArchiveRun, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := n.message(run, errorMsg)

	if err := n.send(addr, nil, n.from, []string{n.to}, msg); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", n.to),
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", n.to),
		zap.String("run_id", run.ID.String()),
	)
	return nil
}

func (n *SMTPNotifier) message(run *entity.ArchiveRun, errorMsg string) []byte {
	subject := fmt.Sprintf("Automan - Annotation Archive Failed [Run %s]", run.ID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"An annotation archive run has failed.\r\n\r\n"+
			"Run ID: %s\r\n"+
			"Project: %d\r\n"+
			"Annotation: %d\r\n"+
			"Dataset: %d\r\n"+
			"Error: %s\r\n\r\n"+
			"-- Automan Annotation Archiver",
		run.ID, run.ProjectID, run.AnnotationID, run.DatasetID, errorMsg,
	)

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.to, subject, body,
	))
}
