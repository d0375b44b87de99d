package tasks

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/session"
	"github.com/desertthunder/recap/internal/shared"
)

// Auth drives the account lifecycle and is the only writer of the session.
type Auth struct {
	api    AccountAPI
	store  session.Store
	logger *log.Logger
}

func NewAuth(api AccountAPI, store session.Store, logger *log.Logger) *Auth {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Auth{api: api, store: store, logger: logger}
}

// Signup registers an account. The backend e-mails a verification link.
func (a *Auth) Signup(ctx context.Context, req models.SignupRequest) (string, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" {
		return "", fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if err := validEmail(req.Email); err != nil {
		return "", err
	}
	if err := validPassword(req.Password); err != nil {
		return "", err
	}

	res, err := a.api.Signup(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Data.Text(), nil
}

// Login exchanges credentials for tokens and stores both.
func (a *Auth) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validEmail(email); err != nil {
		return err
	}
	if err := validPassword(password); err != nil {
		return err
	}

	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.store.Set(res.Data.Access, res.Data.Refresh); err != nil {
		return fmt.Errorf("%w: logged in but could not save the session: %v", shared.ErrStorageUnavailable, err)
	}
	a.logger.Info("logged in", "email", email)
	return nil
}

// Logout clears both tokens. No request is sent; the backend keeps no server-side session.
func (a *Auth) Logout() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	a.logger.Info("logged out")
	return nil
}

// VerifyEmail activates the account for the token from the verification link.
func (a *Auth) VerifyEmail(ctx context.Context, token string) (string, error) {
	res, err := a.api.VerifyEmail(ctx, strings.TrimSpace(token))
	if err != nil {
		return "", err
	}
	return res.Data.Text(), nil
}

// ForgotPassword requests a reset link for email.
func (a *Auth) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validEmail(email); err != nil {
		return "", err
	}
	res, err := a.api.ForgotPassword(ctx, email)
	if err != nil {
		return "", err
	}
	return res.Data.Text(), nil
}

// ResetPassword sets a new password using the token from the reset link.
func (a *Auth) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if err := validPassword(password); err != nil {
		return "", err
	}
	res, err := a.api.ResetPassword(ctx, strings.TrimSpace(token), password)
	if err != nil {
		return "", err
	}
	return res.Data.Text(), nil
}

func validEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: %q is not an e-mail address", shared.ErrInvalidInput, email)
	}
	return nil
}

func validPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", shared.ErrInvalidInput)
	}
	return nil
}
