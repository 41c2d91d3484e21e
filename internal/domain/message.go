package domain

import "errors"

// MessageLimit is the maximum byte length of a webhook message body.
const MessageLimit = 2000

var (
	// ErrMessageNotFound is returned by a Webhook when the message id is unknown.
	ErrMessageNotFound = errors.New("webhook message not found")
	// ErrWebhookNotConfigured is returned when a destination has no URL.
	ErrWebhookNotConfigured = errors.New("webhook is not configured")
)

// Message is an outbound webhook message. ID is assigned by the remote side.
type Message struct {
	ID         string      `json:"id,omitempty"`
	Content    string      `json:"content,omitempty"`
	Username   string      `json:"username,omitempty"`
	AvatarURL  string      `json:"avatar_url,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
}

// Embed is a rich report attached to a message.
type Embed struct {
	Title  string       `json:"title,omitempty"`
	Color  int          `json:"color,omitempty"`
	Author *EmbedAuthor `json:"author,omitempty"`
	Fields []EmbedField `json:"fields,omitempty"`
	Footer *EmbedFooter `json:"footer,omitempty"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

const (
	ComponentTypeActionRow = 1
	ComponentTypeButton    = 2

	ButtonStyleDanger = 4
)

// ActionRow holds the interactive controls of a message.
type ActionRow struct {
	Type       int      `json:"type"`
	Components []Button `json:"components"`
}

// Button is an interactive control. CustomID is echoed back in interactions.
type Button struct {
	Type     int    `json:"type"`
	Style    int    `json:"style"`
	Label    string `json:"label"`
	CustomID string `json:"custom_id"`
}

// NewButtonRow builds a single-button action row.
func NewButtonRow(label, customID string, style int) ActionRow {
	return ActionRow{
		Type: ComponentTypeActionRow,
		Components: []Button{{
			Type:     ComponentTypeButton,
			Style:    style,
			Label:    label,
			CustomID: customID,
		}},
	}
}
