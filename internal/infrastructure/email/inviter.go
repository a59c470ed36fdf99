package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/corphub/events-api/internal/core/domain"
)

const guestInvitationTemplate = "guest_invitation"

// GuestInvitationData feeds the guest_invitation templates.
type GuestInvitationData struct {
	GuestName   string
	InviterName string
	Title       string
	Date        string
	Venue       string
	Agenda      string
}

// GuestInviter implements ports.GuestNotifier by rendering and mailing an invitation.
type GuestInviter struct {
	mailer   Mailer
	renderer Renderer
	log      zerolog.Logger
}

func NewGuestInviter(mailer Mailer, renderer Renderer, log zerolog.Logger) *GuestInviter {
	return &GuestInviter{mailer: mailer, renderer: renderer, log: log}
}

func (g *GuestInviter) NotifyGuestInvited(ctx context.Context, event *domain.Event, guest *domain.Guest, inviter domain.Principal) error {
	inviterName := inviter.Name
	if inviterName == "" {
		inviterName = inviter.Email
	}
	data := GuestInvitationData{
		GuestName:   guest.Name,
		InviterName: inviterName,
		Title:       event.Title,
		Date:        event.Date.Format("Monday, 2 January 2006 15:04 MST"),
		Venue:       event.Venue,
		Agenda:      event.Agenda,
	}
	subject, htmlBody, textBody, err := g.renderer.Render(guestInvitationTemplate, data)
	if err != nil {
		return fmt.Errorf("render guest invitation: %w", err)
	}
	if err := g.mailer.Send(ctx, guest.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send guest invitation: %w", err)
	}
	g.log.Info().Str("guest_id", guest.ID).Str("event_id", event.ID).Msg("guest invitation sent")
	return nil
}
