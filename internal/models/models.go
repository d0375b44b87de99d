// package models defines the data exchanged with the transcript summarizer backend
package models

import (
	"fmt"
	"strings"
	"time"
)

// Visibility controls whether a transcript appears in the public feed.
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

// ParseVisibility accepts "public"/"private" in any case. Empty input yields [VisibilityPrivate].
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(VisibilityPrivate):
		return VisibilityPrivate, nil
	case string(VisibilityPublic):
		return VisibilityPublic, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// KeyMoment is a timestamped point of interest in a video.
type KeyMoment struct {
	Timestamp string `json:"timestamp"`
	Moment    string `json:"moment"`
}

// Transcript is a summarized video along with its social counters and the
// viewer's own flags. Counters and flags move together: toggling IsLiked
// always changes LikesCount by exactly one.
type Transcript struct {
	ID           int         `json:"id"`
	YouTubeURL   string      `json:"youtube_url"`
	VideoID      string      `json:"video_id,omitempty"`
	Title        string      `json:"title,omitempty"`
	ChannelName  string      `json:"channel_name,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	Duration     string      `json:"duration,omitempty"`
	PublishDate  string      `json:"publish_date,omitempty"`
	Transcript   string      `json:"transcript"`
	Summary      string      `json:"summary"`
	Highlights   []string    `json:"highlights,omitempty"`
	KeyMoments   []KeyMoment `json:"key_moments,omitempty"`
	Topics       []string    `json:"topics,omitempty"`
	Quotes       []string    `json:"quotes,omitempty"`
	Sentiment    string      `json:"sentiment,omitempty"`
	HostName     string      `json:"host_name,omitempty"`
	GuestName    string      `json:"guest_name,omitempty"`
	Visibility   Visibility  `json:"visibility"`
	CreatedAt    time.Time   `json:"created_at"`

	LikesCount     int  `json:"likes_count"`
	CommentsCount  int  `json:"comments_count"`
	SharesCount    int  `json:"shares_count"`
	FavoritesCount int  `json:"favorites_count"`
	IsLiked        bool `json:"is_liked"`
	IsFavorited    bool `json:"is_favorited"`
}

// DisplayTitle falls back to the video link when the backend could not resolve a title.
func (t Transcript) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.YouTubeURL
}

// Comment is one entry of a transcript's append-only comment list.
type Comment struct {
	ID           int       `json:"id"`
	User         int       `json:"user,omitempty"`
	UserUsername string    `json:"user_username"`
	Transcript   int       `json:"transcript,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubscriptionStatus is the backend's authoritative billing snapshot.
// A user without a subscription is reported as {status: "inactive"}.
type SubscriptionStatus struct {
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	IsActive           bool       `json:"is_active"`
}

// CancelPending reports a subscription that stays active until the period ends.
func (s SubscriptionStatus) CancelPending() bool {
	return s.IsActive && s.CanceledAt != nil
}

// SubscriptionResult is returned by the create-subscription endpoint.
// ClientSecret is set when the payment needs a second confirmation.
type SubscriptionResult struct {
	SubscriptionID string `json:"subscription_id,omitempty"`
	Status         string `json:"status,omitempty"`
	ClientSecret   string `json:"client_secret,omitempty"`
}

// PaymentMethod is a stored card.
type PaymentMethod struct {
	ID                    int       `json:"id"`
	StripePaymentMethodID string    `json:"stripe_payment_method_id"`
	CardBrand             string    `json:"card_brand,omitempty"`
	Last4                 string    `json:"last4,omitempty"`
	ExpMonth              int       `json:"exp_month,omitempty"`
	ExpYear               int       `json:"exp_year,omitempty"`
	IsDefault             bool      `json:"is_default"`
	CreatedAt             time.Time `json:"created_at"`
}

// Tokens is the bearer credential pair issued on login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Message string `json:"message,omitempty"`
}

// Message is the generic acknowledgement body ({message}, {detail} or {success, detail}).
type Message struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Text returns whichever of Message or Detail the backend filled in.
func (m Message) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Detail
}

// SignupRequest registers a new account. The account stays inactive until the e-mail is verified.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest exchanges credentials for [Tokens].
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SummarizeRequest asks the backend to fetch and summarize a video.
type SummarizeRequest struct {
	YouTubeURL string     `json:"youtube_url"`
	Visibility Visibility `json:"visibility"`
}
