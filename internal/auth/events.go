package auth

import (
	"context"
	"time"

	"github.com/authgate/authgate/internal/db/models"
)

// LoginEvent is passed to login listeners after credentials were accepted.
type LoginEvent struct {
	User    *models.User
	Subject string
	Context *Context
	At      time.Time
}

// LogoutEvent is passed to logout listeners once the session is gone.
type LogoutEvent struct {
	User    *models.User
	Subject string
	At      time.Time
}

// LoginListener may veto a login by returning cancel true and a reason
// shown to the user.
type LoginListener func(ctx context.Context, e LoginEvent) (reason string, cancel bool)

// LogoutListener observes logouts.
type LogoutListener func(ctx context.Context, e LogoutEvent)

// OnLogin registers l. Listeners run in registration order and the first
// veto wins. Register before the service handles requests.
func (s *Service) OnLogin(l LoginListener) {
	s.onLogin = append(s.onLogin, l)
}

// OnLogout registers l. Register before the service handles requests.
func (s *Service) OnLogout(l LogoutListener) {
	s.onLogout = append(s.onLogout, l)
}

func (s *Service) emitLogin(ctx context.Context, e LoginEvent) (string, bool) {
	for _, l := range s.onLogin {
		if reason, cancel := l(ctx, e); cancel {
			return reason, true
		}
	}

	return "", false
}

func (s *Service) emitLogout(ctx context.Context, e LogoutEvent) {
	for _, l := range s.onLogout {
		l(ctx, e)
	}
}
