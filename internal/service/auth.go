package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	"assignado/internal/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the identity adapter: it owns password hashes and signs
// the bearer tokens the HTTP layer hands out.
type AuthService struct {
	users       UserRepository
	secret      []byte
	ttl         time.Duration
	inviteToken string
	now         func() time.Time
	log         *logrus.Entry
}

func NewAuthService(users UserRepository, secret string, ttl time.Duration, inviteToken string) *AuthService {
	return &AuthService{
		users:       users,
		secret:      []byte(secret),
		ttl:         ttl,
		inviteToken: inviteToken,
		now:         time.Now,
		log:         logging.Component("auth"),
	}
}

// Register stores a new user. The admin role is granted only when the
// request carries the configured invite token.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if err := ensureAvailable(ctx, s.users, email, req.Username, ""); err != nil {
		return nil, err
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := models.RoleMember
	if s.inviteToken != "" && req.AdminInviteToken == s.inviteToken {
		role = models.RoleAdmin
	}
	now := s.now()
	user := &models.User{
		Name:            strings.TrimSpace(req.Name),
		Username:        req.Username,
		Email:           email,
		Password:        hash,
		Role:            role,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user": user.ID, "role": user.Role}).Info("user registered")
	return user, nil
}

// Login checks the credentials. Unknown email and wrong password produce
// the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidCreds
		}
		return nil, err
	}
	if !checkPassword(user.Password, req.Password) {
		return nil, errors.ErrInvalidCreds
	}
	return user, nil
}

func (s *AuthService) TokenTTL() time.Duration { return s.ttl }

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", errors.ErrInternalServer, err)
	}
	return signed, nil
}

// Authenticate validates a token and loads its user, so a role change or a
// deleted account takes effect without waiting for expiry.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, errors.ErrUnauthorized
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, errors.ErrInvalidToken
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%w: hash password: %v", errors.ErrInternalServer, err)
	}
	return string(hash), nil
}

func checkPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ensureAvailable fails with errors.ErrUserExists when email or username is
// held by an account other than exceptID. Empty values are not checked.
func ensureAvailable(ctx context.Context, users UserRepository, email, username, exceptID string) error {
	if email != "" {
		u, err := users.GetUserByEmail(ctx, email)
		switch {
		case err == nil && u.ID != exceptID:
			return errors.ErrUserExists
		case err != nil && !errors.Is(err, errors.ErrUserNotFound):
			return err
		}
	}
	if username != "" {
		u, err := users.GetUserByUsername(ctx, username)
		switch {
		case err == nil && u.ID != exceptID:
			return errors.ErrUserExists
		case err != nil && !errors.Is(err, errors.ErrUserNotFound):
			return err
		}
	}
	return nil
}
