package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/account"
)

// RemoteRegistrar creates the account on the API.
type RemoteRegistrar interface {
	Register(ctx context.Context, in api.RegisterRequest) error
}

// RegisterAccountInput carries the registration form.
type RegisterAccountInput struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Name            string `json:"name" validate:"required,max=50"`
	ShopName        string `json:"shopName" validate:"required,max=100"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
}

// RegisterAccountDeps holds dependencies for RegisterAccount.
type RegisterAccountDeps struct {
	Users      UserStore
	Remote     RemoteRegistrar
	GenerateID func() string
	Now        func() time.Time
}

var ErrEmailTaken = errors.New("an account with this email already exists")

// ExecuteRegisterAccount registers a dashboard user on the API and records it locally.
// PRE: deps.Users and deps.Remote are non-nil
// POST: the first local user becomes the owner, later users are staff
// INVARIANT: nothing is saved locally when the API rejects the registration
func ExecuteRegisterAccount(ctx context.Context, input RegisterAccountInput, deps RegisterAccountDeps) (account.Account, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	input.ShopName = strings.TrimSpace(input.ShopName)
	if err := validateStruct(input).OrNil(); err != nil {
		return account.Account{}, err
	}

	users, err := deps.Users.Users(ctx)
	if err != nil {
		return account.Account{}, err
	}
	if _, _, exists := account.FindByEmail(users, input.Email); exists {
		return account.Account{}, ErrEmailTaken
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	role := account.RoleStaff
	if len(users) == 0 {
		role = account.RoleOwner
	}
	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     input.Email,
		Name:      input.Name,
		ShopName:  input.ShopName,
		Phone:     strings.TrimSpace(input.Phone),
		Role:      role,
		CreatedAt: now().UTC(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, &ValidationError{Fields: map[string]string{"form": err.Error()}}
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}

	err = deps.Remote.Register(ctx, api.RegisterRequest{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
		ShopName: input.ShopName,
		Phone:    acct.Phone,
	})
	if err != nil {
		slog.Warn("account_register_rejected", "email", input.Email, "err", err)
		return account.Account{}, err
	}

	if err := deps.Users.SaveUsers(ctx, append(users, acct)); err != nil {
		return account.Account{}, err
	}
	slog.Info("auth_event", "event", "account_registered", "email", acct.Email, "role", acct.Role)
	return acct, nil
}
