package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InitRedis connects to Redis and checks the connection.
func InitRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Session is the server side half of a login. The token carries only its id.
type Session struct {
	UserID   uint            `json:"userId"`
	UserType models.UserType `json:"userType"`
}

// SessionStore keeps login sessions in Redis so tokens can be revoked on logout.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	newID  func() string
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, newID: uuid.NewString}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Create stores a new session and returns its id.
func (s *SessionStore) Create(ctx context.Context, userID uint, userType models.UserType) (string, error) {
	id := s.newID()
	data, err := json.Marshal(Session{UserID: userID, UserType: userType})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, sessionKey(id), string(data), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

// Get returns the session or ErrSessionNotFound when it expired or was revoked.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}

// BookingCache holds the serialized booking list of each passenger.
// Every booking mutation invalidates the affected passengers.
type BookingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBookingCache(client *redis.Client, ttl time.Duration) *BookingCache {
	return &BookingCache{client: client, ttl: ttl}
}

func bookingsKey(passengerID uint) string {
	return fmt.Sprintf("bookings:passenger:%d", passengerID)
}

// Get reports a cache miss with ok=false and a nil error.
func (c *BookingCache) Get(ctx context.Context, passengerID uint) (bookings []*models.Booking, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, bookingsKey(passengerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(data), &bookings); err != nil {
		return nil, false, err
	}
	return bookings, true, nil
}

func (c *BookingCache) Set(ctx context.Context, passengerID uint, bookings []*models.Booking) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(bookings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookingsKey(passengerID), string(data), c.ttl).Err()
}

func (c *BookingCache) Invalidate(ctx context.Context, passengerIDs ...uint) error {
	if c == nil || len(passengerIDs) == 0 {
		return nil
	}
	seen := make(map[uint]bool, len(passengerIDs))
	keys := make([]string, 0, len(passengerIDs))
	for _, id := range passengerIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, bookingsKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}
