package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/recap/internal/models"
)

var _ list.Item = transcriptItem{}

// transcriptItem wraps [models.Transcript] to implement [list.Item].
type transcriptItem struct {
	transcript models.Transcript
}

func (i transcriptItem) FilterValue() string { return i.transcript.DisplayTitle() }
func (i transcriptItem) Title() string       { return i.transcript.DisplayTitle() }
func (i transcriptItem) Description() string {
	t := i.transcript
	parts := []string{counters(t)}
	if t.ChannelName != "" {
		parts = append([]string{t.ChannelName}, parts...)
	}
	return strings.Join(parts, " • ")
}

// counters renders the social counters with the viewer's own flags.
func counters(t models.Transcript) string {
	heart, star := "♡", "☆"
	if t.IsLiked {
		heart = styles.active.Render("♥")
	}
	if t.IsFavorited {
		star = styles.warn.Render("★")
	}
	return fmt.Sprintf("%s %d  %s %d  ↗ %d  💬 %d", heart, t.LikesCount, star, t.FavoritesCount, t.SharesCount, t.CommentsCount)
}

func toItems(transcripts []models.Transcript) []list.Item {
	items := make([]list.Item, len(transcripts))
	for i, t := range transcripts {
		items[i] = transcriptItem{transcript: t}
	}
	return items
}
