package service

import (
	"context"
	"errors"
	"time"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrAccountDeactivated   = errors.New("user account is deactivated")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

// AuthClaims is the JWT payload: user id, tenant id and role.
type AuthClaims struct {
	UserID   string      `json:"uid"`
	TenantID string      `json:"tenantId"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// --- Service Interface ---
type AuthService interface {
	// Register creates a new organization together with its first (admin) user.
	Register(ctx context.Context, name, email, password, organizationName string) (*domain.User, *domain.Organization, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	// GetProfile returns the user plus the organization it belongs to.
	GetProfile(ctx context.Context, userID string) (*domain.User, *domain.Organization, error)
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserRepository
	orgRepo       repository.OrganizationRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, orgRepo repository.OrganizationRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour * 1
	}
	return &authService{
		userRepo:      userRepo,
		orgRepo:       orgRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register handles new organization + admin user registration.
func (s *authService) Register(ctx context.Context, name, email, password, organizationName string) (*domain.User, *domain.Organization, error) {
	if name == "" || email == "" || password == "" || organizationName == "" {
		return nil, nil, errors.New("name, email, password and organizationName cannot be empty")
	}
	if len(password) < 6 {
		return nil, nil, errors.New("password must be at least 6 characters long")
	}

	// Check if user already exists
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, ErrHashingFailed
	}

	org := &domain.Organization{Name: organizationName}
	orgID, err := s.orgRepo.Create(ctx, org)
	if err != nil {
		return nil, nil, err
	}
	org.ID = orgID

	// The first user of an organization is its admin.
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleAdmin,
		TenantID:     orgID,
		IsActive:     true,
	}

	userID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, nil, ErrUserAlreadyExists
		}
		return nil, nil, err
	}
	user.ID = userID

	// Remove password hash before returning
	user.PasswordHash = ""
	return user, org, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, user *domain.User, err error) {
	if email == "" || password == "" {
		err = errors.New("email and password cannot be empty")
		return
	}

	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrAuthenticationFailed // User not found maps to auth failure
			return
		}
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		err = ErrAuthenticationFailed
		user = nil
		return
	}

	if !user.IsActive {
		err = ErrAccountDeactivated
		user = nil
		return
	}

	token, err = s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	// Clear password hash before returning user object
	user.PasswordHash = ""
	return token, user, nil
}

// GetProfile returns the user and its organization.
func (s *authService) GetProfile(ctx context.Context, userID string) (*domain.User, *domain.Organization, error) {
	id, err := parseObjectID(userID)
	if err != nil {
		return nil, nil, repository.ErrNotFound
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	org, err := s.orgRepo.GetByID(ctx, user.TenantID)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, org, nil
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(s.jwtExpiration)
	claims := &AuthClaims{
		UserID:   user.ID.Hex(),
		TenantID: user.TenantID.Hex(),
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "video-platform",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}
