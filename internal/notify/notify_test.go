package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/authz/server/internal/logging"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func testMessage() Message {
	return Message{
		Subject:  "Verify Your Account - AUTH:Z",
		To:       "alice@example.com",
		From:     "no-reply@authz.dev",
		ReplyTo:  "noreply@baoto.com",
		Template: TemplateVerifyEmail,
		Name:     "Alice",
		Link:     "http://localhost:3000/verify/abc",
	}
}

func TestRender(t *testing.T) {
	for _, name := range []string{TemplateLoginCode, TemplateVerifyEmail, TemplateForgotPassword, TemplateChangePassword} {
		t.Run(name, func(t *testing.T) {
			msg := testMessage()
			msg.Template = name
			body, err := Render(msg)
			require.NoError(t, err)
			assert.Contains(t, body, "Hello Alice")
			assert.Contains(t, body, "http://localhost:3000/verify/abc")
			assert.True(t, HasTemplate(name))
		})
	}
}

func TestRender_EscapesName(t *testing.T) {
	msg := testMessage()
	msg.Name = "<script>x</script>"
	body, err := Render(msg)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRender_UnknownTemplate(t *testing.T) {
	msg := testMessage()
	msg.Template = "nope"
	_, err := Render(msg)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.False(t, HasTemplate("nope"))
}

func TestSMTPNotifier_Send(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{client: fake, log: logging.Nop()}

	require.NoError(t, n.Send(context.Background(), testMessage()))
	require.Len(t, fake.sent, 1)

	m := fake.sent[0]
	assert.Equal(t, []string{"Verify Your Account - AUTH:Z"}, m.GetGenHeader(mail.HeaderSubject))
	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rcpts)
}

func TestSMTPNotifier_SendFailure(t *testing.T) {
	fake := &fakeSender{err: errors.New("dial tcp: refused")}
	n := &SMTPNotifier{client: fake, log: logging.Nop()}

	err := n.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestSMTPNotifier_InvalidAddress(t *testing.T) {
	fake := &fakeSender{}
	n := &SMTPNotifier{client: fake, log: logging.Nop()}

	msg := testMessage()
	msg.To = "not an address"
	assert.Error(t, n.Send(context.Background(), msg))
	assert.Empty(t, fake.sent)
}

func TestNewSMTPNotifier(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"}, logging.Nop())
	require.NoError(t, err)
	assert.NotNil(t, n.client)

	_, err = NewSMTPNotifier(SMTPConfig{Host: "", Port: 587}, logging.Nop())
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	n := NewLogNotifier(log)

	require.NoError(t, n.Send(context.Background(), testMessage()))
	assert.Contains(t, buf.String(), "a***@example.com")
	assert.NotContains(t, buf.String(), "alice@example.com")

	msg := testMessage()
	msg.Template = "nope"
	assert.ErrorIs(t, n.Send(context.Background(), msg), ErrUnknownTemplate)
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "***", MaskEmail("invalid"))
	assert.Equal(t, "***", MaskEmail("@example.com"))
}
