package auth

import (
	"context"
	"fmt"

	"checkin-app/internal/config"
	"checkin-app/internal/database"
	"checkin-app/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Service validates identity tokens issued by the external auth provider.
// Token issuance happens elsewhere; this side only consumes a verified
// identity.
type Service struct {
	db  database.UserRepository
	cfg *config.Config
}

func NewService(db database.UserRepository, cfg *config.Config) *Service {
	return &Service{
		db:  db,
		cfg: cfg,
	}
}

func (s *Service) ValidateToken(tokenString string) (*jwt.MapClaims, error) {
	if len(s.cfg.JWT.Secret) == 0 {
		return nil, fmt.Errorf("token authentication is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.JWT.Secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (s *Service) GetUserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if userIDFloat, ok := (*claims)["user_id"].(float64); ok {
		return s.db.GetUserByID(ctx, int(userIDFloat))
	}

	// Tokens without a user id carry the username; resolve it the same
	// way a setUsername frame would.
	username, ok := (*claims)["username"].(string)
	if !ok || username == "" {
		return nil, fmt.Errorf("token carries no usable identity")
	}

	return s.db.GetOrCreateUserByUsername(ctx, username)
}
