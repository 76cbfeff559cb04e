package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"retail-erp-backend/internal/models"
)

const tokenTTL = 24 * time.Hour

// Claims is the payload of an operator token.
type Claims struct {
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserRequest creates or updates an account. An empty Password on update keeps
// the current one.
type UserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type AuthService struct {
	db     *gorm.DB
	secret []byte
}

func NewAuthService(db *gorm.DB, secret string) *AuthService {
	return &AuthService{db: db, secret: []byte(secret)}
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hashed), nil
}

// Login checks the credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithField("username", username).Warn("login for unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.WithField("username", username).Warn("login with wrong password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, Role: user.Role}, nil
}

func (s *AuthService) IssueToken(userID uint, role models.Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// ParseToken validates a token and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCredentials, err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// EnsureOperator creates the admin account, or resets its password when it
// already exists. An empty password leaves an existing account untouched.
func (s *AuthService) EnsureOperator(ctx context.Context, username, password string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	switch {
	case err == nil:
		if password == "" {
			return nil
		}
		hashed, err := HashPassword(password)
		if err != nil {
			return err
		}
		return errors.Wrap(s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
			"password_hash": hashed,
			"role":          models.RoleAdmin,
		}).Error, "update operator")
	case errors.Is(err, gorm.ErrRecordNotFound):
		if password == "" {
			return invalid("ADMIN_PASSWORD is required to create operator %q", username)
		}
		_, err := s.RegisterUser(ctx, UserRequest{Username: username, Password: password, Role: models.RoleAdmin})
		return err
	default:
		return errors.Wrap(err, "load operator")
	}
}

func validateUser(req *UserRequest, requirePassword bool) error {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return invalid("username is required")
	}
	if (requirePassword || req.Password != "") && len(req.Password) < 6 {
		return invalid("password must have at least 6 characters")
	}
	if !req.Role.Valid() {
		return invalid("unknown role %q", req.Role)
	}
	return nil
}

func (s *AuthService) RegisterUser(ctx context.Context, req UserRequest) (*models.User, error) {
	if err := validateUser(&req, true); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "check username")
	}
	if count > 0 {
		return nil, errors.Wrapf(ErrConflict, "username %q", req.Username)
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{Username: req.Username, Password: hashed, Role: req.Role}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, errors.Wrap(err, "insert user")
	}

	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return &user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

func (s *AuthService) UpdateUser(ctx context.Context, id uint, req UserRequest) (*models.User, error) {
	if err := validateUser(&req, false); err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	var clash int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", req.Username, id).
		Count(&clash).Error; err != nil {
		return nil, errors.Wrap(err, "check username")
	}
	if clash > 0 {
		return nil, errors.Wrapf(ErrConflict, "username %q", req.Username)
	}

	user.Username = req.Username
	user.Role = req.Role
	if req.Password != "" {
		if user.Password, err = HashPassword(req.Password); err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, errors.Wrap(err, "update user")
	}
	return user, nil
}

func (s *AuthService) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete user")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "user %d", id)
	}
	return nil
}
