package model

import (
	"time"
)

type Tag struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Computed fields (not in database)
	Label   string `db:"-" json:"label"`
	Classes string `db:"-" json:"classes"`
}
