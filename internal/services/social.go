package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/desertthunder/recap/internal/models"
)

var (
	epLike       = endpoint{name: "like", method: http.MethodPost, path: "api/transcript/%d/like/", auth: authRequired, fallback: "Failed to like transcript"}
	epUnlike     = endpoint{name: "unlike", method: http.MethodDelete, path: "api/transcript/%d/unlike/", auth: authRequired, fallback: "Failed to unlike transcript"}
	epFavorite   = endpoint{name: "favorite", method: http.MethodPost, path: "api/transcript/%d/favorite/", auth: authRequired, fallback: "Failed to favorite transcript"}
	epUnfavorite = endpoint{name: "unfavorite", method: http.MethodDelete, path: "api/transcript/%d/unfavorite/", auth: authRequired, fallback: "Failed to unfavorite transcript"}
	epShare      = endpoint{name: "share", method: http.MethodPost, path: "api/transcript/%d/share/", auth: authRequired, fallback: "Failed to share transcript"}
	epComments   = endpoint{name: "comments", method: http.MethodGet, path: "api/transcript/%d/comments/", auth: authOptional, fallback: "Failed to load comments"}
	epAddComment = endpoint{name: "add_comment", method: http.MethodPost, path: "api/transcript/%d/comments/", auth: authRequired, fallback: "Failed to add comment"}
)

func (a *APIService) social(ctx context.Context, ep endpoint, id int) (Result[models.Message], error) {
	if err := validID(ep.name, id); err != nil {
		return reject[models.Message](err)
	}
	return call[models.Message](ctx, a, ep.withID(id), nil)
}

// Like a public transcript. Liking twice is acknowledged with "Already liked".
func (a *APIService) Like(ctx context.Context, id int) (Result[models.Message], error) {
	return a.social(ctx, epLike, id)
}

// Unlike answers 204 on success.
func (a *APIService) Unlike(ctx context.Context, id int) (Result[models.Message], error) {
	return a.social(ctx, epUnlike, id)
}

func (a *APIService) Favorite(ctx context.Context, id int) (Result[models.Message], error) {
	return a.social(ctx, epFavorite, id)
}

// Unfavorite answers 204 on success.
func (a *APIService) Unfavorite(ctx context.Context, id int) (Result[models.Message], error) {
	return a.social(ctx, epUnfavorite, id)
}

// Share records a share. Every call counts.
func (a *APIService) Share(ctx context.Context, id int) (Result[models.Message], error) {
	return a.social(ctx, epShare, id)
}

// Comments lists a transcript's comments in server order.
func (a *APIService) Comments(ctx context.Context, id int) (Result[[]models.Comment], error) {
	if err := validID(epComments.name, id); err != nil {
		return reject[[]models.Comment](err)
	}
	return call[[]models.Comment](ctx, a, epComments.withID(id), nil)
}

// AddComment posts text and returns the stored comment.
func (a *APIService) AddComment(ctx context.Context, id int, text string) (Result[models.Comment], error) {
	if err := validID(epAddComment.name, id); err != nil {
		return reject[models.Comment](err)
	}
	if err := required(epAddComment.name, "comment", text); err != nil {
		return reject[models.Comment](err)
	}
	return call[models.Comment](ctx, a, epAddComment.withID(id), map[string]string{"text": strings.TrimSpace(text)})
}
