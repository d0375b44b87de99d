package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/recap/internal/models"
)

var (
	epSummarize        = endpoint{name: "summarize", method: http.MethodPost, path: "api/transcript/summarize/", auth: authRequired, fallback: "Failed to summarize video"}
	epHistory          = endpoint{name: "history", method: http.MethodGet, path: "api/transcript/history/", auth: authRequired, fallback: "Failed to load history"}
	epHistoryItem      = endpoint{name: "history_item", method: http.MethodGet, path: "api/transcript/history/%d/", auth: authRequired, fallback: "Failed to load transcript"}
	epDeleteHistory    = endpoint{name: "delete_history", method: http.MethodDelete, path: "api/transcript/history/%d/", auth: authRequired, fallback: "Failed to delete transcript"}
	epUpdateVisibility = endpoint{name: "update_visibility", method: http.MethodPatch, path: "api/transcript/history/%d/", auth: authRequired, fallback: "Failed to update visibility"}
	epPublicFeed       = endpoint{name: "public_feed", method: http.MethodGet, path: "api/transcript/public-feed/", auth: authOptional, fallback: "Failed to load public feed"}
	epFavorites        = endpoint{name: "favorites", method: http.MethodGet, path: "api/transcript/favorites/", auth: authRequired, fallback: "Failed to load favorites"}
)

// withID fills the transcript id into a path template.
func (e endpoint) withID(id int) endpoint {
	e.path = fmt.Sprintf(e.path, id)
	return e
}

// Summarize submits a video link. Visibility defaults to PRIVATE.
//
// When the free tier is used up the error has UpgradeRequired set.
func (a *APIService) Summarize(ctx context.Context, youtubeURL string, visibility models.Visibility) (Result[models.Transcript], error) {
	if _, err := ExtractVideoID(youtubeURL); err != nil {
		return reject[models.Transcript](invalid(epSummarize.name, "please enter a valid YouTube link"))
	}
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if err := validVisibility(epSummarize.name, visibility); err != nil {
		return reject[models.Transcript](err)
	}
	return call[models.Transcript](ctx, a, epSummarize, models.SummarizeRequest{YouTubeURL: youtubeURL, Visibility: visibility})
}

// History lists the caller's own transcripts.
func (a *APIService) History(ctx context.Context) (Result[[]models.Transcript], error) {
	return call[[]models.Transcript](ctx, a, epHistory, nil)
}

// HistoryItem fetches one of the caller's transcripts.
func (a *APIService) HistoryItem(ctx context.Context, id int) (Result[models.Transcript], error) {
	if err := validID(epHistoryItem.name, id); err != nil {
		return reject[models.Transcript](err)
	}
	return call[models.Transcript](ctx, a, epHistoryItem.withID(id), nil)
}

// DeleteHistory removes a transcript. Success is a 204.
func (a *APIService) DeleteHistory(ctx context.Context, id int) (Result[struct{}], error) {
	if err := validID(epDeleteHistory.name, id); err != nil {
		return reject[struct{}](err)
	}
	return call[struct{}](ctx, a, epDeleteHistory.withID(id), nil)
}

// UpdateVisibility publishes or hides a transcript and returns the updated record.
func (a *APIService) UpdateVisibility(ctx context.Context, id int, visibility models.Visibility) (Result[models.Transcript], error) {
	if err := validID(epUpdateVisibility.name, id); err != nil {
		return reject[models.Transcript](err)
	}
	if err := validVisibility(epUpdateVisibility.name, visibility); err != nil {
		return reject[models.Transcript](err)
	}
	return call[models.Transcript](ctx, a, epUpdateVisibility.withID(id), map[string]models.Visibility{"visibility": visibility})
}

// PublicFeed lists public transcripts. The token is sent when present so the
// viewer flags (is_liked, is_favorited) are filled in.
func (a *APIService) PublicFeed(ctx context.Context) (Result[[]models.Transcript], error) {
	return call[[]models.Transcript](ctx, a, epPublicFeed, nil)
}

// Favorites lists the transcripts the caller favorited.
func (a *APIService) Favorites(ctx context.Context) (Result[[]models.Transcript], error) {
	return call[[]models.Transcript](ctx, a, epFavorites, nil)
}
