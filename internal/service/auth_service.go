package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("wrong username or password")
var ErrUserAlreadyExists = errors.New("username already taken")
var ErrTokenInvalid = errors.New("token is invalid or expired")

type AuthService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) Register(ctx context.Context, dto domain.RegisterUserDTO) (*domain.User, error) {
	existingUser, err := s.userRepo.FindByUsername(ctx, dto.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking for existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Username: dto.Username,
		Password: string(hashedPassword),
		Role:     "operator",
	}
	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	createdUser.Password = ""
	return createdUser, nil
}

func (s *AuthService) Login(ctx context.Context, dto domain.LoginUserDTO) (*domain.AuthResponseDTO, error) {
	user, err := s.userRepo.FindByUsername(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"sub":      strconv.Itoa(user.ID),
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(s.jwtExpiration).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &domain.AuthResponseDTO{
		Token:    signed,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, nil, ErrTokenInvalid
	}
	return token, claims, nil
}
