package security

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

var (
	jwtSecret     []byte
	jwtSecretOnce sync.Once
)

func signingSecret() []byte {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("JWT_SECRET")

		if secret == "" {
			if err := godotenv.Load(); err == nil {
				secret = os.Getenv("JWT_SECRET")
			}
		}

		if secret == "" {
			log.Fatal("JWT_SECRET environment variable is not set")
		}

		jwtSecret = []byte(secret)
	})

	return jwtSecret
}

func AuthenticateUser(username, password string, repo *repository.Repository) (*models.User, error) {
	var user models.User

	query := repo.GoquDBWrapper.
		Select("id", "organization_id", "username", "password_hash", "role").
		From("users").
		Where(goqu.Ex{"username": username})

	found, err := query.Executor().ScanStruct(&user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("unknown user: %s", username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, err
	}

	return &user, nil
}

func GenerateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"jti":            uuid.NewString(),
		"userID":         user.ID,
		"organizationID": user.OrganizationID,
		"username":       user.Username,
		"role":           user.Role,
		"exp":            time.Now().Add(12 * time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingSecret())
}
