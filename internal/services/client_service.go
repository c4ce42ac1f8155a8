package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/repositories"
	"studio_booking_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// --- Custom Service Errors for Client ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrClientValidation   = errors.New("client data validation error")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// --- Client DTOs ---

// RegisterRequest DTO. The binding tags are checked by gin; Register validates again
// for callers outside HTTP.
type RegisterRequest struct {
	Username    string  `json:"username" binding:"required"`
	Password    string  `json:"password" binding:"required,min=8"`
	FullName    string  `json:"full_name" binding:"required"`
	TaxID       string  `json:"tax_id"`
	PhoneNumber string  `json:"phone_number"`
	Email       string  `json:"email" binding:"required,email"`
	DateOfBirth *string `json:"date_of_birth"` // YYYY-MM-DD
}

// LoginRequest DTO
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateClientRequest DTO. Nil fields are left unchanged; a new password is re-hashed.
type UpdateClientRequest struct {
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	FullName    *string `json:"full_name"`
	TaxID       *string `json:"tax_id"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email" binding:"omitempty,email"`
	DateOfBirth *string `json:"date_of_birth"`
	Role        *string `json:"role"`
}

// ListClientsRequest DTO
type ListClientsRequest struct {
	Search   string
	Page     int
	PageSize int
}

// AuthResponse DTO
type AuthResponse struct {
	Client      *models.Client `json:"client"`
	AccessToken string         `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
}

// --- ClientService Interface ---
type ClientService interface {
	// Register creates a client with the given role. The HTTP layer always passes models.RoleUser.
	Register(ctx context.Context, req RegisterRequest, role string) (*models.Client, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetProfile(ctx context.Context, clientID int64) (*models.Client, error)
	GetClients(ctx context.Context, req ListClientsRequest) ([]models.Client, int, error)
	UpdateClient(ctx context.Context, clientID int64, req UpdateClientRequest) (*models.Client, error)
	DeleteClient(ctx context.Context, clientID int64) error
}

type clientService struct {
	repo   repositories.ClientRepository
	tokens *utils.TokenManager
}

// NewClientService creates a new instance of ClientService.
func NewClientService(repo repositories.ClientRepository, tokens *utils.TokenManager) ClientService {
	return &clientService{repo: repo, tokens: tokens}
}

func validateRegisterRequest(req RegisterRequest, role string) error {
	switch {
	case utils.IsEmpty(req.Username):
		return fmt.Errorf("%w: username is required", ErrClientValidation)
	case utils.IsEmpty(req.FullName):
		return fmt.Errorf("%w: full name is required", ErrClientValidation)
	case !utils.IsValidEmail(req.Email):
		return fmt.Errorf("%w: invalid email format", ErrClientValidation)
	case !utils.IsValidPasswordLength(req.Password, MinPasswordLength):
		return fmt.Errorf("%w: password must be at least %d characters", ErrClientValidation, MinPasswordLength)
	case !models.IsValidRole(role):
		return fmt.Errorf("%w: unknown role %q", ErrClientValidation, role)
	}
	return nil
}

// Register handles the business logic for client registration.
func (s *clientService) Register(ctx context.Context, req RegisterRequest, role string) (*models.Client, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validateRegisterRequest(req, role); err != nil {
		return nil, err
	}

	client := &models.Client{
		Username:    req.Username,
		FullName:    strings.TrimSpace(req.FullName),
		TaxID:       utils.NewNullString(strings.TrimSpace(req.TaxID)),
		PhoneNumber: utils.NewNullString(strings.TrimSpace(req.PhoneNumber)),
		Email:       strings.TrimSpace(req.Email),
		Role:        role,
	}
	if req.DateOfBirth != nil && !utils.IsEmpty(*req.DateOfBirth) {
		dob, err := time.Parse(DateLayout, strings.TrimSpace(*req.DateOfBirth))
		if err != nil {
			return nil, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrClientValidation)
		}
		client.DateOfBirth = &dob
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	client.PasswordHash = string(hash)

	created, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to register client: %w", err)
	}
	created.PasswordHash = ""
	utils.LogInfo("Client registered", map[string]interface{}{"client_id": created.ID, "role": created.Role})
	return created, nil
}

// Login checks the credentials and issues an access token.
func (s *clientService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if utils.IsEmpty(req.Username) || req.Password == "" {
		return nil, ErrInvalidCredentials
	}
	client, err := s.repo.GetClientByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(client.ID, client.Username, client.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	client.PasswordHash = ""
	return &AuthResponse{
		Client:      client,
		AccessToken: token,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// GetProfile retrieves a client's profile by ID.
func (s *clientService) GetProfile(ctx context.Context, clientID int64) (*models.Client, error) {
	client, err := s.repo.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve client profile: %w", err)
	}
	client.PasswordHash = ""
	return client, nil
}

// GetClients lists clients for administration. Pages default to 1 and 10.
func (s *clientService) GetClients(ctx context.Context, req ListClientsRequest) ([]models.Client, int, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	filters := models.ClientFilters{Page: req.Page, PageSize: req.PageSize}
	if search := strings.TrimSpace(req.Search); search != "" {
		filters.Search = &search
	}

	clients, total, err := s.repo.ListClients(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get clients: %w", err)
	}
	for i := range clients {
		clients[i].PasswordHash = ""
	}
	return clients, total, nil
}

// UpdateClient applies a partial update to a client.
func (s *clientService) UpdateClient(ctx context.Context, clientID int64, req UpdateClientRequest) (*models.Client, error) {
	client, err := s.repo.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find client for update: %w", err)
	}

	if req.Username != nil {
		if utils.IsEmpty(*req.Username) {
			return nil, fmt.Errorf("%w: username cannot be empty", ErrClientValidation)
		}
		client.Username = strings.TrimSpace(*req.Username)
	}
	if req.FullName != nil {
		if utils.IsEmpty(*req.FullName) {
			return nil, fmt.Errorf("%w: full name cannot be empty", ErrClientValidation)
		}
		client.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		if !utils.IsValidEmail(*req.Email) {
			return nil, fmt.Errorf("%w: invalid email format", ErrClientValidation)
		}
		client.Email = strings.TrimSpace(*req.Email)
	}
	if req.TaxID != nil {
		client.TaxID = utils.NewNullString(strings.TrimSpace(*req.TaxID))
	}
	if req.PhoneNumber != nil {
		client.PhoneNumber = utils.NewNullString(strings.TrimSpace(*req.PhoneNumber))
	}
	if req.DateOfBirth != nil {
		if utils.IsEmpty(*req.DateOfBirth) {
			client.DateOfBirth = nil
		} else {
			dob, err := time.Parse(DateLayout, strings.TrimSpace(*req.DateOfBirth))
			if err != nil {
				return nil, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrClientValidation)
			}
			client.DateOfBirth = &dob
		}
	}
	if req.Role != nil {
		if !models.IsValidRole(*req.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrClientValidation, *req.Role)
		}
		client.Role = *req.Role
	}
	if req.Password != nil {
		if !utils.IsValidPasswordLength(*req.Password, MinPasswordLength) {
			return nil, fmt.Errorf("%w: password must be at least %d characters", ErrClientValidation, MinPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		client.PasswordHash = string(hash)
	}

	if err := s.repo.UpdateClient(ctx, client); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateKey):
			return nil, ErrUsernameExists
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	client.PasswordHash = ""
	utils.LogInfo("Client updated", map[string]interface{}{"client_id": client.ID, "password_changed": req.Password != nil})
	return client, nil
}

// DeleteClient removes a client.
func (s *clientService) DeleteClient(ctx context.Context, clientID int64) error {
	if err := s.repo.DeleteClient(ctx, clientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete client: %w", err)
	}
	utils.LogInfo("Client deleted", map[string]interface{}{"client_id": clientID})
	return nil
}
