// Package auth is the optional account layer. Anonymous use never needs it;
// signing in only upgrades the display label on newly created content.
package auth

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

	"github.com/sujalbistaa/confesso/internal/apperr"
	"github.com/sujalbistaa/confesso/internal/models"
)

const tokenTTL = 24 * time.Hour

// ErrBadCredentials covers both unknown email and wrong password, so the
// response does not reveal which one it was.
var ErrBadCredentials = errors.New("invalid email or password")

// Service registers users and issues HS256 session tokens.
type Service struct {
	db     *gorm.DB
	secret []byte
}

func NewService(db *gorm.DB, secret string) *Service {
	return &Service{db: db, secret: []byte(secret)}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", apperr.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", apperr.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: an account with this email already exists", apperr.ErrValidation)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return &user, nil
}

// Login checks the password and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return token, &user, nil
}

// CurrentUser resolves a bearer token to its account, or (nil, nil) when the
// token is absent. Invalid or expired tokens are an error, not anonymity.
func (s *Service) CurrentUser(ctx context.Context, bearer string) (*models.User, error) {
	if bearer == "" {
		return nil, nil
	}
	tokenStr := strings.TrimPrefix(bearer, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("could not parse token claims")
	}
	sub, _ := claims["sub"].(string)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("account no longer exists")
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return &user, nil
}

// DisplayLabel resolves what to stamp on new posts and comments: the account
// name, else the email local part. Evaluated fresh at every use; labels
// already frozen on old content never change.
func DisplayLabel(user *models.User) string {
	if user == nil {
		return ""
	}
	if user.Name != "" {
		return user.Name
	}
	if i := strings.Index(user.Email, "@"); i > 0 {
		return user.Email[:i]
	}
	return user.Email
}
