package tasks

import (
	"context"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/services"
)

// FeedAPI is the part of the gateway the feed reducer talks to.
type FeedAPI interface {
	PublicFeed(ctx context.Context) (services.Result[[]models.Transcript], error)
	Favorites(ctx context.Context) (services.Result[[]models.Transcript], error)
	Like(ctx context.Context, id int) (services.Result[models.Message], error)
	Unlike(ctx context.Context, id int) (services.Result[models.Message], error)
	Favorite(ctx context.Context, id int) (services.Result[models.Message], error)
	Unfavorite(ctx context.Context, id int) (services.Result[models.Message], error)
	Share(ctx context.Context, id int) (services.Result[models.Message], error)
	Comments(ctx context.Context, id int) (services.Result[[]models.Comment], error)
	AddComment(ctx context.Context, id int, text string) (services.Result[models.Comment], error)
}

// BillingAPI is the part of the gateway the entitlement reconciler talks to.
type BillingAPI interface {
	SubscriptionStatus(ctx context.Context) (services.Result[models.SubscriptionStatus], error)
	CreateSubscription(ctx context.Context, paymentMethodID string) (services.Result[models.SubscriptionResult], error)
	CancelSubscription(ctx context.Context) (services.Result[models.Message], error)
	AddPaymentMethod(ctx context.Context, paymentMethodID string) (services.Result[models.Message], error)
	PaymentMethods(ctx context.Context) (services.Result[[]models.PaymentMethod], error)
}

// AccountAPI covers the auth lifecycle endpoints.
type AccountAPI interface {
	Signup(ctx context.Context, req models.SignupRequest) (services.Result[models.Message], error)
	Login(ctx context.Context, email, password string) (services.Result[models.Tokens], error)
	VerifyEmail(ctx context.Context, token string) (services.Result[models.Message], error)
	ForgotPassword(ctx context.Context, email string) (services.Result[models.Message], error)
	ResetPassword(ctx context.Context, token, password string) (services.Result[models.Message], error)
}

// HistoryAPI reads the signed-in user's own transcripts.
type HistoryAPI interface {
	History(ctx context.Context) (services.Result[[]models.Transcript], error)
	HistoryItem(ctx context.Context, id int) (services.Result[models.Transcript], error)
}

var (
	_ FeedAPI    = (*services.APIService)(nil)
	_ BillingAPI = (*services.APIService)(nil)
	_ AccountAPI = (*services.APIService)(nil)
	_ HistoryAPI = (*services.APIService)(nil)
)
