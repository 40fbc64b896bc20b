package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Movie is a catalog entry as returned by the backend.
type Movie struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Director string  `json:"director,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// Review is a user review of a movie.
type Review struct {
	ID        string    `json:"id,omitempty"`
	MovieID   string    `json:"movie_id"`
	Author    string    `json:"author,omitempty"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Catalog is the typed resource surface the application pages consume. It
// routes everything through the API client, so bearer, CSRF, correlation,
// and status handling apply uniformly. Role prechecks here are optimistic
// UX gating; the server re-authorizes every call.
type Catalog struct {
	api      *Client
	sessions *Manager
	audit    *AuditLogger
}

// NewCatalog returns the catalog surface over the given client.
func NewCatalog(api *Client, sessions *Manager, audit *AuditLogger) *Catalog {
	return &Catalog{
		api:      api,
		sessions: sessions,
		audit:    audit,
	}
}

// ListMovies fetches the catalog listing.
func (c *Catalog) ListMovies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	if err := c.api.Get(ctx, "/movies", &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// SearchMovies queries the catalog. The search term is audited as a length
// only, never as content.
func (c *Catalog) SearchMovies(ctx context.Context, term string) ([]Movie, error) {
	term = strings.TrimSpace(term)
	c.audit.Record(ActionSearch, "", map[string]any{
		"term_length": len(term),
	})

	var movies []Movie
	path := "/movies?search=" + url.QueryEscape(term)
	if err := c.api.Get(ctx, path, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// GetMovie fetches one catalog entry.
func (c *Catalog) GetMovie(ctx context.Context, id string) (*Movie, error) {
	var movie Movie
	if err := c.api.Get(ctx, "/movies/"+url.PathEscape(id), &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// CreateReview posts a review for a movie. Requires the reviewer role.
func (c *Catalog) CreateReview(ctx context.Context, movieID string, review Review) (*Review, error) {
	if !c.sessions.HasRole(RoleReviewer) {
		return nil, ErrAccessDenied
	}

	review.MovieID = movieID
	var created Review
	path := fmt.Sprintf("/movies/%s/reviews", url.PathEscape(movieID))
	if err := c.api.Post(ctx, path, review, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteReview removes a review. Requires the admin role.
func (c *Catalog) DeleteReview(ctx context.Context, movieID, reviewID string) error {
	if !c.sessions.HasRole(RoleAdmin) {
		return ErrAccessDenied
	}

	path := fmt.Sprintf("/movies/%s/reviews/%s", url.PathEscape(movieID), url.PathEscape(reviewID))
	return c.api.Delete(ctx, path)
}
