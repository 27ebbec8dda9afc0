package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"shopsite/internal/models"
	"shopsite/internal/repositories"
)

var (
	ErrEmailTaken    = errors.New("a user with this email address already exists")
	ErrUsernameTaken = errors.New("a user with this username already exists")
)

type UserService interface {
	Register(req *models.RegisterRequest) (*models.User, error)
	Authenticate(username, password string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	ListUsers(limit, offset int) ([]*models.User, error)
}

type userService struct {
	repo   repositories.UserRepository
	emails EmailService
	auth   AuthService
}

func NewUserService(repo repositories.UserRepository, emails EmailService, auth AuthService) UserService {
	return &userService{
		repo:   repo,
		emails: emails,
		auth:   auth,
	}
}

// Register validates uniqueness of email and username in one query, hashes
// the password and creates the account. A failed welcome email does not fail
// the registration.
func (s *userService) Register(req *models.RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	username := strings.TrimSpace(req.Username)

	emailTaken, usernameTaken, err := s.repo.ExistsByEmailOrUsername(email, username)
	if err != nil {
		return nil, err
	}
	if emailTaken {
		log.Printf("[user][register] email %q already exists", email)
		return nil, ErrEmailTaken
	}
	if usernameTaken {
		log.Printf("[user][register] username %q already exists", username)
		return nil, ErrUsernameTaken
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	if s.emails != nil {
		if err := s.emails.SendWelcomeEmail(user.Email, user.Username); err != nil {
			log.Printf("[user][register] warning: failed to send welcome email to %s: %v", user.Email, err)
		}
	}
	log.Printf("[user][register] user %q registered", username)
	return user, nil
}

// Authenticate returns the user on a correct username/password pair, nil
// otherwise.
func (s *userService) Authenticate(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("both fields are required")
	}
	user, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		log.Printf("[user][login] unknown username %q", username)
		return nil, nil
	}
	if err := s.auth.CheckPassword(user.PasswordHash, password); err != nil {
		log.Printf("[user][login] password mismatch for %q", username)
		return nil, nil
	}
	return user, nil
}

func (s *userService) GetUserByID(id int) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(strings.TrimSpace(strings.ToLower(email)))
}

func (s *userService) ListUsers(limit, offset int) ([]*models.User, error) {
	return s.repo.List(limit, offset)
}
