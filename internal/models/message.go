package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type PartType string

const (
	PartText       PartType = "text"
	PartAttachment PartType = "attachment"
)

// Part is one tagged fragment of a message body. Messages are stored in
// this canonical shape so reads never reshape content.
type Part struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Attachment references an external artifact carried by a message.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Message belongs to exactly one chat and is append-only.
type Message struct {
	ID          string       `json:"id"`
	ChatID      string       `json:"chat_id"`
	Role        Role         `json:"role"`
	Parts       []Part       `json:"parts"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TextParts builds a single-part body for a plain text message.
func TextParts(text string) []Part {
	return []Part{{Type: PartText, Text: text}}
}

// Text concatenates the text parts of the message body.
func (m *Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}
