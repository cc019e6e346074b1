package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/auth"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

var (
	// ErrUserInvalidInput signals the caller provided invalid arguments.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the user or address could not be located.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserEmailTaken indicates the email is already registered.
	ErrUserEmailTaken = errors.New("user: email already registered")
	// ErrUserBadCredentials indicates the email/password pair did not match.
	ErrUserBadCredentials = errors.New("user: bad credentials")
)

const minPasswordLength = 8

// UserServiceDeps bundles the collaborators required to construct a user service.
type UserServiceDeps struct {
	Users     repositories.UserRepository
	Addresses repositories.AddressRepository
	Hasher    auth.PasswordHasher
	Tokens    *auth.TokenIssuer
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users     repositories.UserRepository
	addresses repositories.AddressRepository
	hasher    auth.PasswordHasher
	tokens    *auth.TokenIssuer
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Addresses == nil {
		return nil, errors.New("user service: address repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("user service: token issuer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &userService{
		users:     deps.Users,
		addresses: deps.Addresses,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *userService) Register(ctx context.Context, cmd RegisterCommand) (User, string, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return User{}, "", err
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return User{}, "", fmt.Errorf("%w: name is required", ErrUserInvalidInput)
	}
	if len(cmd.Password) < minPasswordLength {
		return User{}, "", fmt.Errorf("%w: password must be at least %d characters", ErrUserInvalidInput, minPasswordLength)
	}

	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return User{}, "", err
	}

	user, err := s.users.Insert(ctx, domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	})
	if err != nil {
		if isConflict(err) {
			return User{}, "", fmt.Errorf("%w: %s", ErrUserEmailTaken, email)
		}
		return User{}, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return User{}, "", err
	}

	s.logger(ctx, "user.registered", map[string]any{"user_id": user.ID})
	return user, token, nil
}

func (s *userService) Login(ctx context.Context, cmd LoginCommand) (User, string, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return User{}, "", ErrUserBadCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return User{}, "", ErrUserBadCredentials
		}
		return User{}, "", err
	}
	if err := s.hasher.Compare(user.PasswordHash, cmd.Password); err != nil {
		return User{}, "", ErrUserBadCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return User{}, "", err
	}

	s.logger(ctx, "user.logged_in", map[string]any{"user_id": user.ID})
	return user, token, nil
}

func (s *userService) GetUser(ctx context.Context, userID uint64) (User, error) {
	if userID == 0 {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return User{}, fmt.Errorf("%w: user %d", ErrUserNotFound, userID)
		}
		return User{}, err
	}
	return user, nil
}

func (s *userService) ListAddresses(ctx context.Context, userID uint64) ([]Address, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	return s.addresses.List(ctx, userID)
}

func (s *userService) GetAddress(ctx context.Context, userID, addressID uint64) (Address, error) {
	addr, err := s.addresses.Get(ctx, userID, addressID)
	if err != nil {
		if isNotFound(err) {
			return Address{}, fmt.Errorf("%w: address %d", ErrUserNotFound, addressID)
		}
		return Address{}, err
	}
	return addr, nil
}

func (s *userService) CreateAddress(ctx context.Context, cmd SaveAddressCommand) (Address, error) {
	addr, err := normaliseAddress(cmd.Address)
	if err != nil {
		return Address{}, err
	}
	return s.addresses.Insert(ctx, addr)
}

func (s *userService) UpdateAddress(ctx context.Context, cmd SaveAddressCommand) (Address, error) {
	if cmd.Address.ID == 0 {
		return Address{}, fmt.Errorf("%w: address id is required", ErrUserInvalidInput)
	}
	addr, err := normaliseAddress(cmd.Address)
	if err != nil {
		return Address{}, err
	}
	updated, err := s.addresses.Update(ctx, addr)
	if err != nil {
		if isNotFound(err) {
			return Address{}, fmt.Errorf("%w: address %d", ErrUserNotFound, addr.ID)
		}
		return Address{}, err
	}
	return updated, nil
}

func (s *userService) DeleteAddress(ctx context.Context, userID, addressID uint64) error {
	if err := s.addresses.Delete(ctx, userID, addressID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: address %d", ErrUserNotFound, addressID)
		}
		return err
	}
	return nil
}

func (s *userService) issueToken(user User) (string, error) {
	return s.tokens.Issue(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
}

func normaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrUserInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email %q", ErrUserInvalidInput, email)
	}
	return email, nil
}

func normaliseAddress(addr Address) (Address, error) {
	if addr.UserID == 0 {
		return Address{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	addr.FirstName = strings.TrimSpace(addr.FirstName)
	addr.LastName = strings.TrimSpace(addr.LastName)
	addr.Line1 = strings.TrimSpace(addr.Line1)
	addr.City = strings.TrimSpace(addr.City)
	addr.PostalCode = strings.TrimSpace(addr.PostalCode)
	addr.CountryCode = strings.ToUpper(strings.TrimSpace(addr.CountryCode))
	if addr.FirstName == "" || addr.LastName == "" {
		return Address{}, fmt.Errorf("%w: first and last name are required", ErrUserInvalidInput)
	}
	if addr.Line1 == "" || addr.City == "" || addr.PostalCode == "" {
		return Address{}, fmt.Errorf("%w: line1, city, and postal code are required", ErrUserInvalidInput)
	}
	if len(addr.CountryCode) != 2 {
		return Address{}, fmt.Errorf("%w: country code must be ISO 3166-1 alpha-2", ErrUserInvalidInput)
	}
	return addr, nil
}
