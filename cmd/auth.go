package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/server"
	"github.com/desertthunder/recap/internal/shared"
)

const defaultLinkTimeout = 10 * time.Minute

// AuthSignup creates an account. The backend e-mails a verification link.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.auth()
	if err != nil {
		return err
	}

	msg, err := auth.Signup(ctx, models.SignupRequest{
		Username: cmd.String("username"),
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ %s\n", orDefault(msg, "Account created"))
	r.writePlain("Open the link in the e-mail, or run: recap auth verify --wait\n")
	return nil
}

// AuthLogin exchanges credentials for tokens and stores them.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.auth()
	if err != nil {
		return err
	}

	r.logger.Info("logging in", "email", cmd.String("email"))
	if err := auth.Login(ctx, cmd.String("email"), cmd.String("password")); err != nil {
		return err
	}
	return r.writePlain("✓ Logged in\n")
}

// AuthLogout removes the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.auth()
	if err != nil {
		return err
	}
	if err := auth.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports whether a session is stored.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.store.Sync(); err != nil {
		r.logger.Warn("session storage unavailable", "error", err)
		return r.writePlain("✗ Not logged in (session storage unavailable: %v)\n", err)
	}
	if !r.store.IsAuthenticated() {
		return r.writePlain("✗ Not logged in\n")
	}
	return r.writePlain("✓ Logged in\nSession: %s\n", r.config.Session.Path)
}

// AuthVerify verifies the e-mail address with a token, a pasted link, or a
// link caught with --wait.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.auth()
	if err != nil {
		return err
	}

	token, err := r.linkToken(ctx, cmd, server.LinkVerify)
	if err != nil {
		return err
	}

	msg, err := auth.VerifyEmail(ctx, token)
	if err != nil {
		return err
	}
	r.writePlain("✓ %s\n", orDefault(msg, "Email verified"))
	return r.writePlain("You can now run: recap auth login\n")
}

// AuthForgot asks the backend to e-mail a reset link.
func (r *Runner) AuthForgot(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.auth()
	if err != nil {
		return err
	}

	msg, err := auth.ForgotPassword(ctx, cmd.String("email"))
	if err != nil {
		return err
	}
	r.writePlain("✓ %s\n", orDefault(msg, "Reset link sent"))
	return r.writePlain("Open the link in the e-mail, or run: recap auth reset --wait --password ...\n")
}

// AuthReset sets a new password with the token from the reset link.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.auth()
	if err != nil {
		return err
	}

	password := cmd.String("password")
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: --password is required", shared.ErrMissingArgument)
	}

	token, err := r.linkToken(ctx, cmd, server.LinkReset)
	if err != nil {
		return err
	}

	msg, err := auth.ResetPassword(ctx, token, password)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", orDefault(msg, "Password reset"))
}

// linkToken takes the token argument (a bare token or the whole link) or,
// with --wait, catches the link on the local listener.
func (r *Runner) linkToken(ctx context.Context, cmd *cli.Command, kind server.LinkKind) (string, error) {
	if token := tokenFromArg(cmd.StringArg("token")); token != "" {
		return token, nil
	}
	if !cmd.Bool("wait") {
		return "", fmt.Errorf("%w: pass the token (or the link) or use --wait", shared.ErrMissingArgument)
	}

	addr := r.config.Server.Addr()
	ln, err := r.listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultLinkTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.writePlain("Waiting for the %s link on http://%s%s (timeout %s)...\n", kind, ln.Addr(), kind.Path(), timeout)
	return server.CatchLink(ctx, ln, kind, r.logger)
}

// tokenFromArg accepts a bare token or a link carrying ?token=.
func tokenFromArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "token=") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return arg
	}
	if token := u.Query().Get("token"); token != "" {
		return token
	}
	return arg
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
