package db

import (
	"context"
	"sync"
	"time"

	"github.com/ukydev/ems-dispatch-sim/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserCollection keeps accounts in process memory. The server falls
// back to it when MongoDB is unreachable; accounts are lost on restart.
type MemoryUserCollection struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserCollection() *MemoryUserCollection {
	return &MemoryUserCollection{users: make(map[primitive.ObjectID]models.User)}
}

func (c *MemoryUserCollection) InsertUser(_ context.Context, user models.User) (models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	c.users[user.ID] = user
	return user, nil
}

func (c *MemoryUserCollection) FindUserByID(_ context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	user, ok := c.users[objectID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (c *MemoryUserCollection) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return c.find(func(u models.User) bool { return u.Username == username })
}

func (c *MemoryUserCollection) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return c.find(func(u models.User) bool { return u.Email == email })
}

func (c *MemoryUserCollection) find(match func(models.User) bool) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.users {
		if match(u) {
			user := u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (c *MemoryUserCollection) UpdateLastLogin(_ context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	user, ok := c.users[objectID]
	if !ok {
		return ErrUserNotFound
	}
	now := time.Now()
	user.LastLogin = &now
	user.UpdatedAt = now
	c.users[objectID] = user
	return nil
}
