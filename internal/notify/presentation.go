// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/tracktarr/internal/discord"
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

// Registration decision reactions.
const (
	ReactionApprove = "✅"
	ReactionReject  = "❌"
)

const statusFieldName = "Status"

type statusStyle struct {
	emoji       string
	label       string
	color       int
	description string
}

var statusStyles = map[models.Status]statusStyle{
	models.StatusPending: {
		emoji: "⏳", label: "En attente", color: discord.ColorBlue,
		description: "Nous avons bien reçu votre demande. Vous serez notifié lorsqu'elle sera terminée.",
	},
	models.StatusFulfilled: {
		emoji: "✅", label: "Disponible", color: discord.ColorGreen,
		description: "Votre demande est disponible.",
	},
	models.StatusMissing: {
		emoji: "🫥", label: "Introuvable", color: 0x94312d,
		description: "Le contenu demandé est introuvable. Nous sommes navrés de ne pas pouvoir vous satisfaire.",
	},
	models.StatusRejected: {
		emoji: "🚫", label: "Refusé", color: discord.ColorRed,
		description: "Le contenu demandé ne respecte pas les règles du serveur.",
	},
	models.StatusCanceled: {
		emoji: "🗑️", label: "Annulé", color: 0x94312d,
		description: "La demande a été annulée.",
	},
}

// StatusEmoji returns the reaction shown for status.
func StatusEmoji(status models.Status) string {
	return statusStyles[status].emoji
}

// StatusLabel returns "{emoji} {label}".
func StatusLabel(status models.Status) string {
	s, ok := statusStyles[status]
	if !ok {
		return string(status)
	}
	return s.emoji + " " + s.label
}

// StatusForReaction maps an admin reaction on a request message to the
// status it asks for.
func StatusForReaction(emoji string) (models.Status, bool) {
	for status, s := range statusStyles {
		if s.emoji == emoji {
			return status, true
		}
	}
	return "", false
}

func yearText(year int) string {
	if year == 0 {
		return "N/A"
	}
	return strconv.Itoa(year)
}

// ThreadName is the admin thread title of a request.
func ThreadName(info media.Info) string {
	return fmt.Sprintf("Suivi: %s (%s)", info.Title, yearText(info.Year))
}

// displayTitle adds the episode position to the show title.
func displayTitle(info media.Info) string {
	if info.Type == media.TypeEpisode {
		return fmt.Sprintf("%s S%02dE%02d", info.Title, info.SeasonNumber(), info.EpisodeNumber())
	}
	return info.Title
}

func typeText(info media.Info) string {
	if info.Type == media.TypeMovie {
		return "Film"
	}
	return "Série"
}

// requestEmbed renders the admin head message of a request from its
// current stored state.
func requestEmbed(req *models.Request) discord.Embed {
	info := req.Media.Info
	embed := discord.Embed{
		Title:       "Nouvelle demande: " + info.Title,
		Description: "Un nouveau média a été ajouté à la liste de synchronisation.",
		Color:       discord.ColorBlue,
		Fields: []discord.EmbedField{
			{Name: "ID", Value: orNA(info.ExternalID)},
			{Name: "Type", Value: typeText(info)},
			{Name: "Année", Value: yearText(info.Year)},
		},
	}
	if info.Type == media.TypeEpisode {
		embed.Fields = append(embed.Fields,
			discord.EmbedField{Name: "Saison", Value: strconv.Itoa(info.SeasonNumber()), Inline: true},
			discord.EmbedField{Name: "Episode", Value: strconv.Itoa(info.EpisodeNumber()), Inline: true},
		)
	}
	embed.Fields = append(embed.Fields,
		discord.EmbedField{Name: "Utilisateurs", Value: orNA(userNames(req))},
		discord.EmbedField{Name: statusFieldName, Value: StatusLabel(req.Status)},
	)
	return embed
}

func userNames(req *models.Request) string {
	names := make([]string, 0, len(req.Users))
	for _, ru := range req.Users {
		if ru.User != nil {
			names = append(names, ru.User.Name)
		} else {
			names = append(names, ru.UserID)
		}
	}
	return strings.Join(names, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// userEmbed is the direct message sent to a user about one request.
func userEmbed(u Update) discord.Embed {
	style := statusStyles[u.Status]
	embed := discord.Embed{
		Title:       fmt.Sprintf("%s (%s)", u.Info.Title, yearText(u.Info.Year)),
		Description: style.description,
		Color:       style.color,
		Fields:      []discord.EmbedField{{Name: statusFieldName, Value: StatusLabel(u.Status), Inline: true}},
	}
	if u.Info.Type == media.TypeEpisode {
		embed.Fields = append(embed.Fields,
			discord.EmbedField{Name: "Saison", Value: strconv.Itoa(u.Info.SeasonNumber()), Inline: true},
			discord.EmbedField{Name: "Episode", Value: strconv.Itoa(u.Info.EpisodeNumber()), Inline: true},
		)
	}
	return embed
}

func registrationEmbed(user *models.User) discord.Embed {
	return discord.Embed{
		Title:       "Nouvelle inscription: " + user.Name,
		Description: fmt.Sprintf("Réagissez avec %s pour accepter ou %s pour refuser.", ReactionApprove, ReactionReject),
		Color:       discord.ColorBlue,
		Fields: []discord.EmbedField{
			{Name: "Utilisateur", Value: user.Name},
			{Name: "Contact", Value: user.MessagingKey + ": " + user.MessagingID},
		},
	}
}
