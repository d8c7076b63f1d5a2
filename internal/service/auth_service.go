package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BigFootLime/erp-crp-backend-sub001/internal/config"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/middleware"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/model/entity"
	"github.com/BigFootLime/erp-crp-backend-sub001/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService émet les jetons d'accès portant l'identité d'audit.
type AuthService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

// NewAuthService crée le service d'authentification.
func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{userRepo: userRepo, cfg: cfg}
}

// LoginRequest porte les identifiants.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult porte le jeton émis.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login vérifie les identifiants et émet un JWT.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("identifiants invalides")
	}
	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(hashPassword(req.Password))) != 1 {
		return nil, fmt.Errorf("identifiants invalides")
	}

	expire := s.cfg.JWT.AccessTokenExpire
	if expire == 0 {
		expire = 24 * time.Hour
	}
	expiresAt := time.Now().Add(expire)

	claims := &middleware.Claims{
		UserID: user.ID,
		Nom:    user.Nom,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWT.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &LoginResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}
