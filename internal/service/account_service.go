package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
	"github.com/perentalassist/hub/internal/protocol"
	"github.com/perentalassist/hub/internal/repository"
)

// SignupRequest carries the validated fields of a SIGNUP command.
type SignupRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=4"`
	Name     string `validate:"required"`
}

// AccountService handles signup, login and user search.
type AccountService interface {
	Signup(ctx context.Context, req SignupRequest) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	Search(ctx context.Context, query string) ([]models.User, error)
}

type accountService struct {
	users    repository.UserRepository
	validate *validator.Validate
	log      zerolog.Logger
}

// NewAccountService constructs the account service.
func NewAccountService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) AccountService {
	return &accountService{
		users:    users,
		validate: validate,
		log:      logger.With().Str("component", "account_service").Logger(),
	}
}

func (s *accountService) Signup(ctx context.Context, req SignupRequest) (models.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = protocol.Sanitize(strings.TrimSpace(req.Name))

	if err := s.validate.Struct(req); err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.Name,
		Role:        "parent",
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	s.log.Info().Uint("user_id", user.ID).Msg("account created")
	return user, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.FindByCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *accountService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.users.Search(ctx, query, 20)
}
