package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/recap/internal/models"
)

var (
	epSignup         = endpoint{name: "signup", method: http.MethodPost, path: "api/users/signup/", fallback: "Signup failed"}
	epLogin          = endpoint{name: "login", method: http.MethodPost, path: "api/users/login/", fallback: "Login failed"}
	epVerifyEmail    = endpoint{name: "verify_email", method: http.MethodGet, path: "api/users/verify-email/", fallback: "Failed to verify email"}
	epForgotPassword = endpoint{name: "forgot_password", method: http.MethodPost, path: "api/users/forgot-password/", fallback: "Failed to send reset link"}
	epResetPassword  = endpoint{name: "reset_password", method: http.MethodPost, path: "api/users/reset-password/", fallback: "Failed to reset password"}
)

// Signup registers an account. The backend e-mails a verification link.
func (a *APIService) Signup(ctx context.Context, req models.SignupRequest) (Result[models.Message], error) {
	if err := required(epSignup.name, "username", req.Username, "email", req.Email, "password", req.Password); err != nil {
		return reject[models.Message](err)
	}
	req.Email = strings.TrimSpace(req.Email)
	return call[models.Message](ctx, a, epSignup, req)
}

// Login exchanges credentials for a token pair. Storing the pair is the caller's job.
func (a *APIService) Login(ctx context.Context, email, password string) (Result[models.Tokens], error) {
	if err := required(epLogin.name, "email", email, "password", password); err != nil {
		return reject[models.Tokens](err)
	}

	res, err := call[models.Tokens](ctx, a, epLogin, models.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return res, err
	}
	if res.Data.Access == "" || res.Data.Refresh == "" {
		return reject[models.Tokens](&APIError{Kind: KindDomain, Endpoint: epLogin.name, Status: res.Status, Message: "Login response did not include tokens"})
	}
	return res, nil
}

// VerifyEmail confirms the token from the verification e-mail.
func (a *APIService) VerifyEmail(ctx context.Context, token string) (Result[models.Message], error) {
	if err := required(epVerifyEmail.name, "token", token); err != nil {
		return reject[models.Message](err)
	}
	ep := epVerifyEmail
	ep.path += "?token=" + url.QueryEscape(strings.TrimSpace(token))
	return call[models.Message](ctx, a, ep, nil)
}

// ForgotPassword asks for a reset link. The backend answers the same way whether or not the address exists.
func (a *APIService) ForgotPassword(ctx context.Context, email string) (Result[models.Message], error) {
	if err := required(epForgotPassword.name, "email", email); err != nil {
		return reject[models.Message](err)
	}
	return call[models.Message](ctx, a, epForgotPassword, map[string]string{"email": strings.TrimSpace(email)})
}

// ResetPassword sets a new password using the token from the reset e-mail.
func (a *APIService) ResetPassword(ctx context.Context, token, password string) (Result[models.Message], error) {
	if err := required(epResetPassword.name, "token", token, "password", password); err != nil {
		return reject[models.Message](err)
	}
	return call[models.Message](ctx, a, epResetPassword, map[string]string{"token": strings.TrimSpace(token), "password": password})
}
