package ports

import (
	"context"

	"github.com/corphub/events-api/internal/core/domain"
)

// GuestNotifier delivers the invitation sent when a guest is added.
type GuestNotifier interface {
	NotifyGuestInvited(ctx context.Context, event *domain.Event, guest *domain.Guest, inviter domain.Principal) error
}
