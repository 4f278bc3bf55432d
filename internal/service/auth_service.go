package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crudkit/sampleapi/internal/config"
	"github.com/crudkit/sampleapi/internal/currentuser"
	"github.com/crudkit/sampleapi/internal/model"
	"github.com/crudkit/sampleapi/internal/pkg/apperrors"
	"github.com/crudkit/sampleapi/internal/pkg/logger"
	"github.com/crudkit/sampleapi/internal/pkg/metrics"
	"github.com/crudkit/sampleapi/internal/repository"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	msgBadCredentials = "No active account found with the given credentials"
	msgBadToken       = "Token is invalid or expired"
)

type UserRepo interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8"`
	IsStaff  bool   `json:"is_staff"`
}

type tokenClaims struct {
	TokenType string `json:"token_type"`
	UserID    uint   `json:"user_id"`
}

// AuthService issues and verifies HS256 JWT access/refresh pairs.
type AuthService struct {
	users      UserRepo
	signer     jose.Signer
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(cfg *config.Config, users UserRepo) (*AuthService, error) {
	// HS256 需要至少 32 字节的密钥
	sum := sha256.Sum256([]byte(cfg.Auth.JWTSecret))
	key := sum[:]

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	return &AuthService{
		users:      users,
		signer:     signer,
		key:        key,
		issuer:     cfg.Auth.Issuer,
		accessTTL:  time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute,
		refreshTTL: time.Duration(cfg.Auth.RefreshTTLHours) * time.Hour,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*model.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Wrap(err)
	}
	if user == nil || !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		metrics.LoginFailures.Inc()
		return nil, apperrors.NewAuthFailed(msgBadCredentials)
	}

	access, err := s.issue(user.ID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	refresh, err := s.issue(user.ID, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		logger.LogError(ctx, err, "failed to update last_login", "user_id", user.ID)
	}
	return &model.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*model.AccessToken, error) {
	user, err := s.userFromToken(ctx, req.Refresh, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	access, err := s.issue(user.ID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	return &model.AccessToken{Access: access}, nil
}

// Authenticate resolves an access token to the principal it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (currentuser.Principal, error) {
	user, err := s.userFromToken(ctx, raw, TokenTypeAccess)
	if err != nil {
		return currentuser.Anonymous(), err
	}
	return user.Principal(), nil
}

func (s *AuthService) Info(p currentuser.Principal) model.UserInfo {
	return model.UserInfo{
		Username:   p.Username,
		Email:      p.Email,
		IsStaff:    p.IsStaff,
		IsActive:   p.IsActive,
		DateJoined: p.DateJoined.Format(time.RFC3339),
	}
}

func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.NewInvalidRequest("username is required")
	}
	if len(req.Password) < 8 {
		return nil, apperrors.NewInvalidRequest("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	user := &model.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		IsStaff:      req.IsStaff,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.New(apperrors.ErrConflict, "a user with that username already exists", err)
		}
		return nil, apperrors.Wrap(err)
	}
	return user, nil
}

func (s *AuthService) issue(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	std := jwt.Claims{
		Issuer:    s.issuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.Signed(s.signer).
		Claims(std).
		Claims(tokenClaims{TokenType: tokenType, UserID: userID}).
		Serialize()
}

func (s *AuthService) userFromToken(ctx context.Context, raw, wantType string) (*model.User, error) {
	tok, err := jwt.ParseSigned(strings.TrimSpace(raw), []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, apperrors.NewAuthFailed(msgBadToken)
	}

	var std jwt.Claims
	var custom tokenClaims
	if err := tok.Claims(s.key, &std, &custom); err != nil {
		return nil, apperrors.NewAuthFailed(msgBadToken)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Issuer: s.issuer, Time: s.now()}, 0); err != nil {
		return nil, apperrors.NewAuthFailed(msgBadToken)
	}
	if custom.TokenType != wantType || custom.UserID == 0 {
		return nil, apperrors.NewAuthFailed("Token has wrong type")
	}

	user, err := s.users.GetByID(ctx, custom.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewAuthFailed("User not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewAuthFailed("User is inactive")
	}
	return user, nil
}
