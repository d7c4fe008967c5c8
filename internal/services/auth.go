package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
	"github.com/devBarbar/smart-study-notes-sub002/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*types.User, error)
	// Login returns (accessToken, refreshToken).
	Login(ctx context.Context, email, password string) (string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	// VerifyAccessToken returns the user id embedded in a valid token.
	VerifyAccessToken(tokenString string) (uuid.UUID, error)
}

type authService struct {
	db         *gorm.DB
	log        *logger.Logger
	users      repos.UserRepo
	tokens     repos.UserTokenRepo
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(db *gorm.DB, log *logger.Logger, users repos.UserRepo, tokens repos.UserTokenRepo) AuthService {
	secret := utils.GetEnv("JWT_SECRET_KEY", "", log)
	accessMin := utils.GetEnvAsInt("JWT_ACCESS_TTL_MINUTES", 15, log)
	refreshHours := utils.GetEnvAsInt("JWT_REFRESH_TTL_HOURS", 24*7, log)

	return &authService{
		db:         db,
		log:        log.With("service", "AuthService"),
		users:      users,
		tokens:     tokens,
		jwtSecret:  []byte(secret),
		accessTTL:  time.Duration(accessMin) * time.Minute,
		refreshTTL: time.Duration(refreshHours) * time.Hour,
	}
}

func (as *authService) Register(ctx context.Context, email, password, firstName, lastName string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	existing, err := as.users.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return as.users.Create(ctx, nil, &types.User{
		Email:     email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	})
}

func (as *authService) Login(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.users.GetByEmail(ctx, nil, email)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}
	return as.issueTokens(ctx, user.ID)
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	row, err := as.tokens.GetActive(ctx, nil, refreshToken)
	if err != nil {
		return "", "", err
	}
	if row == nil {
		return "", "", ErrInvalidCredentials
	}
	if err := as.tokens.Revoke(ctx, nil, refreshToken); err != nil {
		return "", "", err
	}
	return as.issueTokens(ctx, row.UserID)
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	row, err := as.tokens.GetActive(ctx, nil, refreshToken)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	return as.tokens.RevokeAllForUser(ctx, nil, row.UserID)
}

func (as *authService) issueTokens(ctx context.Context, userID uuid.UUID) (string, string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(as.accessTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.jwtSecret)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.New().String()
	if _, err := as.tokens.Create(ctx, nil, &types.UserToken{
		UserID:    userID,
		Token:     refresh,
		ExpiresAt: now.Add(as.refreshTTL),
	}); err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}
	return access, refresh, nil
}

func (as *authService) VerifyAccessToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return as.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return id, nil
}
