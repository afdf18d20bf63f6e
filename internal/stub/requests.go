package stub

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Request is the server-side estate request record.
type Request struct {
	ID                     string
	UserID                 string
	PropertyType           string
	Location               string
	Budget                 string
	Bedrooms               string
	Bathrooms              string
	Surface                string
	District               string
	AdditionalRequirements string
	Status                 string
	CreatedAt              time.Time
}

// RequestStore persists estate requests.
type RequestStore interface {
	Create(ctx context.Context, request Request) error
	List(ctx context.Context) ([]Request, error)
	ListByUser(ctx context.Context, userID string) ([]Request, error)
	GetByID(ctx context.Context, id string) (Request, error)
	UpdateStatus(ctx context.Context, id, status string) (Request, error)
}

type memoryRequestStore struct {
	mu       sync.RWMutex
	requests map[string]Request
}

// NewMemoryRequestStore builds the in-memory fallback request store.
func NewMemoryRequestStore() RequestStore {
	return &memoryRequestStore{requests: make(map[string]Request)}
}

func (s *memoryRequestStore) Create(_ context.Context, request Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[request.ID]; exists {
		return errors.New("request exists")
	}
	s.requests[request.ID] = request
	return nil
}

func (s *memoryRequestStore) List(_ context.Context) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, 0, len(s.requests))
	for _, request := range s.requests {
		out = append(out, request)
	}
	sortByCreation(out)
	return out, nil
}

func (s *memoryRequestStore) ListByUser(_ context.Context, userID string) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, 0)
	for _, request := range s.requests {
		if request.UserID == userID {
			out = append(out, request)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *memoryRequestStore) GetByID(_ context.Context, id string) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return request, nil
}

func (s *memoryRequestStore) UpdateStatus(_ context.Context, id, status string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	request.Status = status
	s.requests[id] = request
	return request, nil
}

func sortByCreation(requests []Request) {
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
}

// PostgresRequestStore implements RequestStore over PostgreSQL.
type PostgresRequestStore struct {
	db *pgxpool.Pool
}

// NewPostgresRequestStore builds a Postgres-backed request store.
func NewPostgresRequestStore(db *pgxpool.Pool) *PostgresRequestStore {
	return &PostgresRequestStore{db: db}
}

const requestColumns = `id, user_id, property_type, location, budget, bedrooms, bathrooms, surface, district, additional_requirements, status, created_at`

// Create inserts a new request.
func (s *PostgresRequestStore) Create(ctx context.Context, request Request) error {
	id, err := uuid.Parse(request.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(request.UserID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO estate_requests (`+requestColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, userID, request.PropertyType, request.Location, request.Budget,
		request.Bedrooms, request.Bathrooms, request.Surface, request.District,
		request.AdditionalRequirements, request.Status, request.CreatedAt.UTC())
	return err
}

// List fetches all requests, oldest first.
func (s *PostgresRequestStore) List(ctx context.Context) ([]Request, error) {
	rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM estate_requests ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ListByUser fetches one user's requests, oldest first.
func (s *PostgresRequestStore) ListByUser(ctx context.Context, userID string) ([]Request, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return []Request{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM estate_requests WHERE user_id = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// GetByID fetches one request.
func (s *PostgresRequestStore) GetByID(ctx context.Context, id string) (Request, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM estate_requests WHERE id = $1`, requestID)
	return scanRequest(row)
}

// UpdateStatus stores the new status and returns the updated record.
func (s *PostgresRequestStore) UpdateStatus(ctx context.Context, id, status string) (Request, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `UPDATE estate_requests SET status = $1 WHERE id = $2
        RETURNING `+requestColumns, status, requestID)
	return scanRequest(row)
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		id        uuid.UUID
		userID    uuid.UUID
		createdAt time.Time
		request   Request
	)
	err := row.Scan(&id, &userID, &request.PropertyType, &request.Location, &request.Budget,
		&request.Bedrooms, &request.Bathrooms, &request.Surface, &request.District,
		&request.AdditionalRequirements, &request.Status, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	request.ID = id.String()
	request.UserID = userID.String()
	request.CreatedAt = createdAt.UTC()
	return request, nil
}

func scanRequests(rows pgx.Rows) ([]Request, error) {
	out := make([]Request, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

// Schema creates the stub's tables. Applied at startup when a database is
// configured; a dev stub has no use for a migrations framework.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    phone_number TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    is_new_user BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS estate_requests (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users (id),
    property_type TEXT NOT NULL,
    location TEXT NOT NULL,
    budget TEXT NOT NULL,
    bedrooms TEXT NOT NULL DEFAULT '',
    bathrooms TEXT NOT NULL DEFAULT '',
    surface TEXT NOT NULL DEFAULT '',
    district TEXT NOT NULL DEFAULT '',
    additional_requirements TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, Schema)
	return err
}
