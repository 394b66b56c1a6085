package memstorage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/user"
	"github.com/osinthub/search-api/internal/ierr"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository holds the operator accounts allowed to use the admin
// endpoints. There is no self-service registration; the single account comes
// from configuration.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewUserRepository(adminUsername, adminPasswordHash string) *UserRepository {
	repo := &UserRepository{
		users: make(map[string]*user.User),
	}

	if adminUsername != "" && adminPasswordHash != "" {
		adminUser := &user.User{
			ID:           uuid.New(),
			Username:     adminUsername,
			PasswordHash: adminPasswordHash,
			Role:         "admin",
		}
		repo.users[strings.ToLower(adminUser.Username)] = adminUser
	}

	return repo
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[strings.ToLower(username)]
	if !ok {
		return nil, ierr.ErrUserNotFound
	}

	userCopy := *u
	return &userCopy, nil
}

func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
