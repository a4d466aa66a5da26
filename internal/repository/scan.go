package repository

import (
	"database/sql"
	"strings"

	"gasra-notifier/internal/models"
)

func nullID(ns sql.NullString) *models.ID {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	id := models.ID(ns.String)
	return &id
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func trimmed(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
