package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"go.uber.org/zap"
)

func TestNotifyFailure(t *testing.T) {
	run := entity.NewArchiveRun(entity.ArchiveInfo{ProjectID: 7, AnnotationID: 8, DatasetID: 9})
	run.MarkFailed("fetch annotation: upstream error")

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	n := NewSMTPNotifier("mail.local", 1025, "noreply@automan.local", "ops@automan.local", zap.NewNop())
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	require.NoError(t, n.NotifyFailure(context.Background(), run, run.ErrorMessage))

	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Equal(t, []string{"ops@automan.local"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: noreply@automan.local\r\nTo: ops@automan.local\r\n"))
	assert.Contains(t, gotMsg, "Subject: Automan - Annotation Archive Failed [Run "+run.ID.String()+"]")
	assert.Contains(t, gotMsg, "Project: 7\r\n")
	assert.Contains(t, gotMsg, "Annotation: 8\r\n")
	assert.Contains(t, gotMsg, "Error: fetch annotation: upstream error")
}

func TestNotifyFailureSendError(t *testing.T) {
	run := entity.NewArchiveRun(entity.ArchiveInfo{ProjectID: 1, AnnotationID: 2})
	n := NewSMTPNotifier("mail.local", 25, "a@b", "c@d", zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.NotifyFailure(context.Background(), run, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send email")
}
