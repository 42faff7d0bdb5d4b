package model

import (
	"time"
)

const (
	ParishTypeParish   = "parish"
	ParishTypeAutarchy = "autarchy"
)

// Parish is a freguesia or a municipal body (autarchy) that owns initiatives.
type Parish struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Type        string    `db:"type" json:"type"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func ValidParishType(t string) bool {
	return t == ParishTypeParish || t == ParishTypeAutarchy
}
