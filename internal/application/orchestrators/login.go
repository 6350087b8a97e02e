package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/account"
)

// RemoteAuthenticator exchanges credentials for a bearer token.
type RemoteAuthenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResult, error)
}

// UserStore reads and replaces the locally registered dashboard users.
type UserStore interface {
	Users(ctx context.Context) ([]account.Account, error)
	SaveUsers(ctx context.Context, list []account.Account) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the bearer credential for session creation.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      api.RemoteUser
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Remote RemoteAuthenticator
	Users  UserStore
	Now    func() time.Time
}

var ErrInvalidCredentials = errors.New("invalid email or password")

// ExecuteLogin authenticates against the API and returns the credential it issues.
// PRE: deps.Remote is non-nil
// POST: returns ErrInvalidCredentials when the API rejects the credentials
// POST: a matching local user record gets its LastLoginAt updated; failures there are logged only
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if validateStruct(input).OrNil() != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	res, err := deps.Remote.Login(ctx, input.Email, input.Password)
	if err != nil {
		var apiErr *api.Error
		if errors.Is(err, api.ErrUnauthorized) || (errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest) {
			slog.Info("auth_event", "event", "login_failed", "email", input.Email)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	out := LoginResult{Token: res.Token, User: res.User}
	if cred, err := DecodeCredential(res.Token); err == nil {
		out.ExpiresAt = cred.ExpiresAt
		if out.User.Role == "" {
			out.User.Role = cred.Role
		}
	} else {
		slog.Debug("credential_opaque", "err", err)
	}

	if deps.Users != nil {
		touchLastLogin(ctx, deps.Users, input.Email, now().UTC())
	}
	slog.Info("auth_event", "event", "login_success", "email", input.Email, "role", out.User.Role)
	return out, nil
}

func touchLastLogin(ctx context.Context, store UserStore, email string, at time.Time) {
	users, err := store.Users(ctx)
	if err != nil {
		slog.Warn("local_users_load_failed", "err", err)
		return
	}
	_, i, ok := account.FindByEmail(users, email)
	if !ok {
		return
	}
	users[i].LastLoginAt = at
	if err := store.SaveUsers(ctx, users); err != nil {
		slog.Warn("local_users_save_failed", "err", err)
	}
}
