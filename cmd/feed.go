package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/services"
	"github.com/desertthunder/recap/internal/shared"
)

// FeedList prints the public feed.
func (r *Runner) FeedList(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}

	res, err := api.PublicFeed(ctx)
	if err != nil {
		return err
	}
	return r.listTranscripts(cmd, "Public feed", res.Data)
}

// Favorites prints the user's favorites.
func (r *Runner) Favorites(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}

	res, err := api.Favorites(ctx)
	if err != nil {
		return err
	}
	return r.listTranscripts(cmd, "Favorites", res.Data)
}

func (r *Runner) listTranscripts(cmd *cli.Command, title string, all []models.Transcript) error {
	query := cmd.String("search")
	items := searchTitles(all, query)
	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d)", title, len(items)))
	if query != "" {
		r.writePlain("%d found (filtered from %d)\n", len(items), len(all))
	}
	r.writeTranscripts(items)
	return nil
}

// searchTitles keeps transcripts whose title contains query, ignoring case.
// A blank query keeps everything.
func searchTitles(items []models.Transcript, query string) []models.Transcript {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	found := make([]models.Transcript, 0, len(items))
	for _, t := range items {
		if strings.Contains(strings.ToLower(t.Title), query) {
			found = append(found, t)
		}
	}
	return found
}

func (r *Runner) writeTranscripts(items []models.Transcript) {
	for _, t := range items {
		flags := ""
		if t.IsLiked {
			flags += "♥"
		}
		if t.IsFavorited {
			flags += "★"
		}
		r.writePlain("%6d  %-2s %s\n", t.ID, flags, shared.Truncate(t.DisplayTitle(), 60))
		r.writePlain("        %d likes · %d favorites · %d shares · %d comments", t.LikesCount, t.FavoritesCount, t.SharesCount, t.CommentsCount)
		if t.ChannelName != "" {
			r.writePlain(" · %s", t.ChannelName)
		}
		r.writePlain("\n")
	}
}

type socialCall func(ctx context.Context, id int) (services.Result[models.Message], error)

func (r *Runner) social(ctx context.Context, cmd *cli.Command, pick func(*services.APIService) socialCall, done string) error {
	api, err := r.service()
	if err != nil {
		return err
	}
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	res, err := pick(api)(ctx, id)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", orDefault(res.Data.Text(), fmt.Sprintf(done, id)))
}

// FeedLike likes a transcript.
func (r *Runner) FeedLike(ctx context.Context, cmd *cli.Command) error {
	return r.social(ctx, cmd, func(a *services.APIService) socialCall { return a.Like }, "Liked transcript %d")
}

// FeedUnlike removes the user's like.
func (r *Runner) FeedUnlike(ctx context.Context, cmd *cli.Command) error {
	return r.social(ctx, cmd, func(a *services.APIService) socialCall { return a.Unlike }, "Unliked transcript %d")
}

// FeedFavorite adds a transcript to favorites.
func (r *Runner) FeedFavorite(ctx context.Context, cmd *cli.Command) error {
	return r.social(ctx, cmd, func(a *services.APIService) socialCall { return a.Favorite }, "Added transcript %d to favorites")
}

// FeedUnfavorite removes a transcript from favorites.
func (r *Runner) FeedUnfavorite(ctx context.Context, cmd *cli.Command) error {
	return r.social(ctx, cmd, func(a *services.APIService) socialCall { return a.Unfavorite }, "Removed transcript %d from favorites")
}

// FeedShare opens a platform share link when --platform is given and then
// records the share through the feed reducer.
func (r *Runner) FeedShare(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	feed, err := r.feed()
	if err != nil {
		return err
	}
	defer feed.Close()

	if err := feed.Load(ctx); err != nil {
		return err
	}
	t, ok := feed.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d is not on the public feed", shared.ErrUnknownEntity, id)
	}

	if platform := cmd.String("platform"); platform != "" {
		link, err := shared.ShareURL(shared.Platform(platform), t.YouTubeURL, t.DisplayTitle(), t.Summary)
		if err != nil {
			return err
		}
		if err := r.openBrowser(link); err != nil {
			r.logger.Warn("could not open browser", "error", err)
			r.writePlain("Open this link to share:\n%s\n", link)
		}
	}

	if _, err := feed.Share(ctx, id); err != nil {
		return err
	}
	t, _ = feed.Get(id)
	return r.writePlain("✓ Shared transcript %d (%d shares)\n", id, t.SharesCount)
}

// FeedComments prints the comments on a transcript in server order.
func (r *Runner) FeedComments(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	res, err := api.Comments(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(res.Data, cmd.Bool("pretty"))
	}

	if len(res.Data) == 0 {
		return r.writePlain("No comments yet.\n")
	}
	for _, c := range res.Data {
		author := c.UserUsername
		if author == "" {
			author = "anonymous"
		}
		r.writePlain("%s (%s)\n  %s\n", author, c.CreatedAt.Format("2006-01-02 15:04"), c.Text)
	}
	return nil
}

// FeedComment posts a comment.
func (r *Runner) FeedComment(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	text := strings.TrimSpace(cmd.StringArg("text"))
	if text == "" {
		return fmt.Errorf("%w: comment text is required", shared.ErrMissingArgument)
	}

	if _, err := api.AddComment(ctx, id, text); err != nil {
		return err
	}
	return r.writePlain("✓ Comment posted on transcript %d\n", id)
}
