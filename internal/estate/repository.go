package estate

import (
	"context"
	"errors"
	"net/http"

	"github.com/aqarlink/aqarlink/internal/api"
	"github.com/aqarlink/aqarlink/internal/apperr"
)

// Repository is a thin typed projection over the estate endpoints. It
// caches nothing: every call re-fetches from the server.
type Repository struct {
	api *api.Client
}

// NewRepository builds a repository over the API client.
func NewRepository(client *api.Client) *Repository {
	return &Repository{api: client}
}

type listResponse struct {
	Requests []serverRequest `json:"requests"`
}

type itemResponse struct {
	Request serverRequest `json:"request"`
}

// ListAll fetches every request visible to the caller. Scoping is enforced
// server-side; the client applies no additional filtering.
func (r *Repository) ListAll(ctx context.Context) ([]Request, error) {
	var resp listResponse
	if err := r.api.Get(ctx, "/api/estate/requests", &resp); err != nil {
		return nil, err
	}
	return convert(resp.Requests), nil
}

// ListMine fetches the caller's own requests. userID is accepted for
// interface symmetry only: the server scopes by session token, not by this
// parameter, so callers must not rely on it to restrict results.
func (r *Repository) ListMine(ctx context.Context, userID string) ([]Request, error) {
	_ = userID
	var resp listResponse
	if err := r.api.Get(ctx, "/api/estate/my-requests", &resp); err != nil {
		return nil, err
	}
	return convert(resp.Requests), nil
}

// Create submits a draft and returns the server-assigned canonical request,
// including its generated id, creation time and pending status.
func (r *Repository) Create(ctx context.Context, userID string, draft Draft) (Request, error) {
	_ = userID
	var resp itemResponse
	if err := r.api.Post(ctx, "/api/estate/requests", draft, &resp); err != nil {
		return Request{}, err
	}
	return fromServer(resp.Request), nil
}

// GetByID fetches one request, surfacing NotFoundError when the server
// reports no such resource.
func (r *Repository) GetByID(ctx context.Context, id string) (Request, error) {
	var resp itemResponse
	if err := r.api.Get(ctx, "/api/estate/requests/"+id, &resp); err != nil {
		var reqErr *apperr.RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
			return Request{}, &apperr.NotFoundError{Resource: "request", ID: id}
		}
		return Request{}, err
	}
	return fromServer(resp.Request), nil
}

// UpdateStatus transitions a request's status. Transition legality is the
// server's responsibility; the client performs no check here.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) (Request, error) {
	body := struct {
		Status Status `json:"status"`
	}{Status: status}
	var resp itemResponse
	if err := r.api.Patch(ctx, "/api/estate/requests/"+id+"/status", body, &resp); err != nil {
		return Request{}, err
	}
	return fromServer(resp.Request), nil
}

func convert(items []serverRequest) []Request {
	requests := make([]Request, 0, len(items))
	for _, item := range items {
		requests = append(requests, fromServer(item))
	}
	return requests
}
