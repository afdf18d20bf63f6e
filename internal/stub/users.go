package stub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// User is the server-side identity record. Users are created on first
// successful verification with IsNewUser true; registration names them.
type User struct {
	ID          string
	PhoneNumber string
	Name        string
	IsNewUser   bool
	CreatedAt   time.Time
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user User) error
	GetByPhone(ctx context.Context, phone string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, user User) error
}

type memoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User // keyed by phone number
}

// NewMemoryUserStore builds the in-memory fallback user store.
func NewMemoryUserStore() UserStore {
	return &memoryUserStore{users: make(map[string]User)}
}

func (s *memoryUserStore) Create(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.PhoneNumber]; exists {
		return errors.New("user exists")
	}
	s.users[user.PhoneNumber] = user
	return nil
}

func (s *memoryUserStore) GetByPhone(_ context.Context, phone string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[phone]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *memoryUserStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *memoryUserStore) Update(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.PhoneNumber]; !ok {
		return ErrNotFound
	}
	s.users[user.PhoneNumber] = user
	return nil
}

// PostgresUserStore implements UserStore over PostgreSQL.
type PostgresUserStore struct {
	db *pgxpool.Pool
}

// NewPostgresUserStore builds a Postgres-backed user store.
func NewPostgresUserStore(db *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Create inserts a new user.
func (s *PostgresUserStore) Create(ctx context.Context, user User) error {
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO users (id, phone_number, name, is_new_user, created_at)
        VALUES ($1, $2, $3, $4, $5)`, id, user.PhoneNumber, user.Name, user.IsNewUser, user.CreatedAt.UTC())
	return err
}

// GetByPhone fetches a user by phone number.
func (s *PostgresUserStore) GetByPhone(ctx context.Context, phone string) (User, error) {
	row := s.db.QueryRow(ctx, `SELECT id, phone_number, name, is_new_user, created_at FROM users WHERE phone_number = $1`, phone)
	return scanUser(row)
}

// GetByID fetches a user by identifier.
func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, phone_number, name, is_new_user, created_at FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// Update stores the user's name and newness flag.
func (s *PostgresUserStore) Update(ctx context.Context, user User) error {
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE users SET name = $1, is_new_user = $2 WHERE id = $3`, user.Name, user.IsNewUser, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.PhoneNumber, &user.Name, &user.IsNewUser, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
