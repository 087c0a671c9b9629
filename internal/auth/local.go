package auth

import (
	"context"
	"strings"

	"github.com/authgate/authgate/internal/db/models"
)

// VerifyPassword checks password against the directory, then against the
// stored hash of u. A directory match skips the local comparison.
func (s *Service) VerifyPassword(ctx context.Context, u *models.User, password string) (bool, error) {
	if s.directory.Enabled() {
		ok, err := s.directory.Verify(ctx, u.Username, password)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}
	}

	return u.VerifyPassword(password), nil
}

// QualifyUsername returns the username to look up. A name that is not an
// e-mail address gets the directory domain appended when directory mode is
// on; otherwise it can not match any account and ok is false. Directory
// mode without a usable domain is a configuration error.
func (s *Service) QualifyUsername(username string) (qualified string, ok bool, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", false, nil
	}

	if s.validate.Var(username, "email") == nil {
		return username, true, nil
	}

	if !s.directory.Enabled() || strings.Contains(username, "@") {
		return "", false, nil
	}

	domain, err := s.directory.Domain()
	if err != nil {
		return "", false, err
	}

	return username + "@" + domain, true, nil
}
