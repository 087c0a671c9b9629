package daemon

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/db/models"
)

// seed inserts every role of the hierarchy missing from the roles table.
func seed(ctx context.Context, db *gorm.DB, h *auth.Hierarchy) error {
	for _, role := range h.Roles() {
		res := db.WithContext(ctx).FirstOrCreate(&models.Role{ID: role}, models.Role{ID: role})
		if res.Error != nil {
			return apperr.Data("could not seed role "+role, res.Error)
		}

		if res.RowsAffected > 0 {
			log.Info().Str("role", role).Msg("seeded role")
		}
	}

	return nil
}
