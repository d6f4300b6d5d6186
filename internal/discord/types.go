// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package discord

// Embed colors.
const (
	ColorBlue  = 0x3498db
	ColorGreen = 0x2ecc71
	ColorRed   = 0xe74c3c
)

// Message is a posted message.
type Message struct {
	ID        string  `json:"id"`
	ChannelID string  `json:"channel_id"`
	Content   string  `json:"content"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// MessageSend is the body of a new or edited message.
type MessageSend struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is a rich message block.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedField is a name/value line of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Field returns a pointer to the first field called name, or nil.
func (e *Embed) Field(name string) *EmbedField {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// Channel is a channel or thread.
type Channel struct {
	ID   string `json:"id"`
	Type int    `json:"type"`
	Name string `json:"name,omitempty"`
}

// Reaction is a MESSAGE_REACTION_ADD dispatch.
type Reaction struct {
	MessageID string
	ChannelID string
	// GuildID is empty for reactions in direct messages.
	GuildID string
	UserID  string
	Emoji   string
	// Bot is set when the reacting user is a bot, this bot included.
	Bot bool
}
