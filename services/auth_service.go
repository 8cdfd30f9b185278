package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"manuscript-review-api/config"
	"manuscript-review-api/models"
	"manuscript-review-api/utils"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	users *UserDirectory
	jwt   config.JWTConfig
	now   func() time.Time
}

func NewAuthService(users *UserDirectory, cfg config.JWTConfig) *AuthService {
	return &AuthService{users: users, jwt: cfg, now: time.Now}
}

// Register creates an active AUTHOR or REVIEWER account. Staff roles are
// provisioned by an administrator.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := utils.SanitizeInput(in.Name)
	email := utils.SanitizeInput(in.Email)
	role := in.Role
	if role == "" {
		role = models.RoleAuthor
	}

	if name == "" {
		return nil, validationError("name is required")
	}
	if !utils.ValidateEmail(email) {
		return nil, validationError("email is invalid")
	}
	if ok, msg := utils.ValidatePassword(in.Password); !ok {
		return nil, validationError("%s", msg)
	}
	if role != models.RoleAuthor && role != models.RoleReviewer {
		return nil, validationError("role must be %s or %s", models.RoleAuthor, models.RoleReviewer)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     role,
		IsActive: true,
		CreateAt: s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, authenticationError("invalid email or password")
		}
		return "", nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return "", nil, authenticationError("invalid email or password")
	}
	if !user.IsActive {
		return "", nil, authorizationError("account is deactivated")
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

// GenerateToken creates an HS256 token for user.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwt.TTL())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwt.Secret))
}

// ParseToken validates tokenString and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwt.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, authenticationError("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, authenticationError("invalid token claims")
	}
	return claims, nil
}

// Authenticate resolves a token to a current, active user.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, authenticationError("user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, authenticationError("account is deactivated")
	}
	return user, nil
}
