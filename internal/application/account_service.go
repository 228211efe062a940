package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/registry"
)

// SignUpInput carries the values a new account is created from.
type SignUpInput struct {
	Username string
	Email    string
	Password string
}

// AccountService signs users up, logs them in and removes their accounts.
// Password checks go through the injected verifier only.
type AccountService struct {
	regs   *registry.Registries
	hash   PasswordHasher
	verify PasswordVerifier
	logger *slog.Logger
}

// NewAccountService wires dependencies for the account service. Nil hash and
// verify default to argon2id.
func NewAccountService(regs *registry.Registries, hash PasswordHasher, verify PasswordVerifier, logger *slog.Logger) *AccountService {
	if hash == nil {
		hash = Argon2idHasher(DefaultArgon2idParams)
	}
	if verify == nil {
		verify = Argon2idVerifier
	}
	return &AccountService{regs: regs, hash: hash, verify: verify, logger: defaultLogger(logger)}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// SignUp validates input, hashes the password and creates the user.
func (s *AccountService) SignUp(ctx context.Context, input SignUpInput) (user *domain.User, err error) {
	logger := s.loggerWith(ctx, "SignUp", "username", strings.TrimSpace(input.Username))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign-up failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID()).InfoContext(ctx, "user signed up")
	}()

	vErr := validateSignUp(input)
	if vErr.HasErrors() {
		return nil, vErr
	}

	hashed, err := s.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.regs.Users.Create(ctx, domain.UserFields{
		Username:       input.Username,
		Email:          input.Email,
		HashedPassword: hashed,
	})
}

func validateSignUp(input SignUpInput) *domain.ValidationError {
	vErr := &domain.ValidationError{}
	if strings.TrimSpace(input.Username) == "" {
		vErr.Add("username", "is required")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		vErr.Add("email", "is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.Add("email", "must be a valid email address")
	}
	if len([]rune(input.Password)) < MinPasswordLength {
		vErr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	return vErr
}

// LogIn returns the user whose username and password match. Unknown users
// and wrong passwords both yield ErrInvalidCredentials.
func (s *AccountService) LogIn(ctx context.Context, username, password string) (user *domain.User, err error) {
	logger := s.loggerWith(ctx, "LogIn", "username", strings.TrimSpace(username))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID()).InfoContext(ctx, "user logged in")
	}()

	user, err = s.regs.Users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.verify(password, user.HashedPassword()) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID, current, next string) (err error) {
	logger := s.loggerWith(ctx, "ChangePassword", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change password", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	user, err := s.authenticate(ctx, userID, current)
	if err != nil {
		return err
	}
	if len([]rune(next)) < MinPasswordLength {
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	hashed, err := s.hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return user.SetHashedPassword(hashed)
}

// DeleteAccount removes the user after checking the password. Schedules the
// user alone belonged to are deleted too.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, password string) (err error) {
	logger := s.loggerWith(ctx, "DeleteAccount", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "account deleted")
	}()

	if _, err := s.authenticate(ctx, userID, password); err != nil {
		return err
	}
	return s.regs.Users.Delete(ctx, userID)
}

func (s *AccountService) authenticate(ctx context.Context, userID, password string) (*domain.User, error) {
	user, err := s.regs.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.verify(password, user.HashedPassword()) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
