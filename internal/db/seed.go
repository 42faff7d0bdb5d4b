package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type seedParish struct {
	name, code, kind string
}

type seedTag struct {
	name, color string
}

type seedUser struct {
	email, password, role string
	parishCode          string
}

var seedParishes = []seedParish{
	{"Lumiar", "lumiar", "parish"},
	{"Penha de França", "penha-franca", "parish"},
	{"Câmara Municipal", "camara-municipal", "autarchy"},
	{"Assembleia Municipal", "assembleia-municipal", "autarchy"},
}

var seedTags = []seedTag{
	{"Finanças", "#10B981"},
	{"Transparência", "#3B82F6"},
	{"Mobilidade", "#F59E0B"},
	{"Segurança", "#EF4444"},
	{"Habitação", "#8B5CF6"},
	{"Património", "#6B7280"},
	{"Setor Empresarial do Estado", "#84CC16"},
}

var seedUsers = []seedUser{
	{"admin@portal.pt", "admin123", "admin", ""},
	{"parque@portal.pt", "parish123", "parish", "lumiar"},
}

// Seed inserts the reference parishes, tags and the two bootstrap accounts.
// Existing rows are left untouched so it is safe to run on every start.
func Seed(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	for _, p := range seedParishes {
		_, err = tx.Exec(`INSERT INTO parishes (name, code, type, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
			p.name, p.code, p.kind, now)
		if err != nil {
			return fmt.Errorf("failed to seed parish %s: %w", p.code, err)
		}
	}

	for _, t := range seedTags {
		_, err = tx.Exec(`INSERT INTO tags (name, color, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			t.name, t.color, now)
		if err != nil {
			return fmt.Errorf("failed to seed tag %s: %w", t.name, err)
		}
	}

	for _, u := range seedUsers {
		var exists int
		err = tx.Get(&exists, `SELECT COUNT(*) FROM users WHERE email = $1`, u.email)
		if err != nil {
			return err
		}
		if exists > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		var parishID *int64
		if u.parishCode != "" {
			var id int64
			err = tx.Get(&id, `SELECT id FROM parishes WHERE code = $1`, u.parishCode)
			if err != nil {
				return fmt.Errorf("failed to resolve parish %s: %w", u.parishCode, err)
			}
			parishID = &id
		}

		_, err = tx.Exec(`INSERT INTO users (email, password_hash, role, parish_id, is_active, created_at, updated_at)
		                  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.email, string(hash), u.role, parishID, true, now, now)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.email, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	slog.Info("seed data applied", "parishes", len(seedParishes), "tags", len(seedTags), "users", len(seedUsers))
	return nil
}
