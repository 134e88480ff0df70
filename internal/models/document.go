package models

import "time"

type DocumentKind string

const (
	DocumentText DocumentKind = "text"
	DocumentCode DocumentKind = "code"
)

// Document is a model-drafted artifact created through the document tools.
type Document struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Title     string       `json:"title"`
	Kind      DocumentKind `json:"kind"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
