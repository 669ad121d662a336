package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/model"
	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
	"github.com/skillswap/exchange-server-go/internal/repository"
	"github.com/skillswap/exchange-server-go/internal/util"
)

const tokenIssuer = "skillswap"

// TokenRevoker tracks logged-out tokens. *redis.TokenDenyList satisfies it.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type AuthResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Profile   *model.UserProfile `json:"profile"`
}

type AuthService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	tx          Transactor
	revoker     TokenRevoker
	publisher   EventPublisher
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	tx Transactor,
	revoker TokenRevoker,
	publisher EventPublisher,
	secret string,
	ttl time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		tx:          tx,
		revoker:     revoker,
		publisher:   publisher,
		secret:      []byte(secret),
		ttl:         ttl,
		now:         time.Now,
	}
}

// Signup creates the account and its default profile in one transaction.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	email := util.NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	if !util.IsValidEmail(email) {
		return nil, apperrors.InvalidInput("email", "must be a valid address")
	}
	if !util.IsAcceptablePassword(input.Password) {
		return nil, apperrors.InvalidInput("password", fmt.Sprintf("must be %d to 72 characters", util.MinPasswordLength))
	}
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if len([]rune(name)) > MaxNameLength {
		return nil, apperrors.ValidationError("name is too long")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.RemoteOperation("load user", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("account")
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var profile *model.UserProfile
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.userRepo.WithTx(tx).Create(ctx, model.CreateUserParams{
			Email:        email,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		profile, err = s.profileRepo.WithTx(tx).Create(ctx, model.NewUserProfile(user.ID, name, email))
		return err
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.AlreadyExists("account")
		}
		return nil, apperrors.RemoteOperation("create account", err)
	}

	log.Info().
		Str("userId", profile.ID).
		Int("credits", profile.Credits).
		Msg("account created")

	notify(ctx, s.publisher, redisclient.ProfilesTopic, map[string]string{"id": profile.ID})

	token, expiresAt, err := s.issueToken(profile.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = util.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.RemoteOperation("load user", err)
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("failed to record last login")
	}

	profile, err := s.profileRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, apperrors.RemoteOperation("load profile", err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("profile")
	}

	token, expiresAt, err := s.issueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

// Logout denies the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperrors.RemoteOperation("revoke token", err)
	}
	return nil
}

// Authenticate returns the user id carried by a valid, unrevoked token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", apperrors.RemoteOperation("check token revocation", err)
	}
	if revoked {
		return "", apperrors.InvalidToken("token has been revoked")
	}
	return claims.Subject, nil
}

func (s *AuthService) issueToken(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("missing authentication token")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.InvalidToken("token has expired")
		}
		return nil, apperrors.InvalidToken("invalid token")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, apperrors.InvalidToken("invalid token")
	}
	return claims, nil
}
