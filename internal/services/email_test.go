package services

import (
	"context"
	"errors"
	"testing"

	"invitegate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMailer records sends.
type fakeMailer struct {
	to, subject, html, text string
	err                     error
}

func (f *fakeMailer) Send(to, subject, html, text string) error {
	f.to, f.subject, f.html, f.text = to, subject, html, text
	return f.err
}

// fakeRenderer implements domain.EmailTemplateRenderer.
type fakeRenderer struct {
	name string
	err  error
}

func (f *fakeRenderer) Render(templateName string, data any) (string, string, string, error) {
	f.name = templateName
	if f.err != nil {
		return "", "", "", f.err
	}
	return "subject", "<p>html</p>", "text", nil
}

func TestEmailService_SendInvitation(t *testing.T) {
	ctx := context.Background()
	data := &domain.InvitationEmailData{
		Email:     "new@example.com",
		Role:      domain.RoleGuest,
		InviteURL: "https://app.example.com/invitation/tok",
	}

	t.Run("renders invitation template and sends", func(t *testing.T) {
		mailer := &fakeMailer{}
		renderer := &fakeRenderer{}
		svc := NewEmailService(mailer, renderer)

		require.NoError(t, svc.SendInvitation(ctx, data))
		assert.Equal(t, "invitation", renderer.name)
		assert.Equal(t, "new@example.com", mailer.to)
		assert.Equal(t, "subject", mailer.subject)
	})

	t.Run("render failure", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{}, &fakeRenderer{err: errors.New("no template")})
		require.Error(t, svc.SendInvitation(ctx, data))
	})

	t.Run("send failure", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{err: errors.New("ses down")}, &fakeRenderer{})
		require.Error(t, svc.SendInvitation(ctx, data))
	})

	t.Run("nil data", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{}, &fakeRenderer{})
		require.Error(t, svc.SendInvitation(ctx, nil))
	})
}
