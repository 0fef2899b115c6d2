// Package dataset generates the dummy users served by the data routes and
// keeps them in the database so every request sees the same rows.
package dataset

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/neboloop/turbo/internal/db"
	"github.com/neboloop/turbo/internal/types"
)

const (
	DefaultCount = 1000
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
)

var (
	statuses    = []string{"active", "inactive", "pending", "archived"}
	departments = []string{"Engineering", "Sales", "Marketing", "HR", "Finance", "Operations"}
	countries   = []string{"USA", "UK", "Germany", "France", "Japan", "Australia", "Canada", "Brazil"}
)

// Generate builds count users. The same seed always yields the same rows.
func Generate(count int, seed uint64) []types.User {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	users := make([]types.User, count)
	for i := range users {
		id := i + 1
		users[i] = types.User{
			ID:          id,
			Name:        fmt.Sprintf("User %d", id),
			Email:       fmt.Sprintf("user%d@example.com", id),
			Department:  departments[rng.IntN(len(departments))],
			Country:     countries[rng.IntN(len(countries))],
			Salary:      rng.IntN(150000) + 50000,
			Status:      statuses[rng.IntN(len(statuses))],
			HireDate:    fmt.Sprintf("%04d-%02d-%02d", 2015+rng.IntN(10), rng.IntN(12)+1, rng.IntN(28)+1),
			Performance: rng.IntN(100),
		}
	}
	return users
}

// Page is a normalized page request.
type Page struct {
	Page  int
	Limit int
}

// NormalizePage applies defaults to non-positive values and caps the limit.
func NormalizePage(page, limit int) Page {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// Offset is the index of the first row of the page. It saturates at
// math.MaxInt instead of wrapping for very large pages.
func (p Page) Offset() int {
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages is ceil(total / limit).
func (p Page) TotalPages(total int) int {
	return (total + p.Limit - 1) / p.Limit
}

// Repository serves the dataset from the store, seeding it on first use.
type Repository struct {
	store *db.Store
	count int
	seed  uint64

	mu     sync.Mutex
	seeded bool
}

func NewRepository(store *db.Store, count int, seed uint64) *Repository {
	if count <= 0 {
		count = DefaultCount
	}
	return &Repository{store: store, count: count, seed: seed}
}

// Ensure seeds the store unless it already holds users.
func (r *Repository) Ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seeded {
		return nil
	}
	n, err := r.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		if err := r.store.InsertUsers(ctx, Generate(r.count, r.seed)); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}
	r.seeded = true
	return nil
}

// All returns every user.
func (r *Repository) All(ctx context.Context) (*types.ListUsersResponse, error) {
	if err := r.Ensure(ctx); err != nil {
		return nil, err
	}
	users, err := r.store.ListUsers(ctx, 0, -1)
	if err != nil {
		return nil, err
	}
	return &types.ListUsersResponse{Success: true, Count: len(users), Data: users}, nil
}

// Paginate returns one page of users.
func (r *Repository) Paginate(ctx context.Context, page, limit int) (*types.PaginatedUsersResponse, error) {
	if err := r.Ensure(ctx); err != nil {
		return nil, err
	}
	p := NormalizePage(page, limit)
	total, err := r.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := []types.User{}
	if off := p.Offset(); off < total {
		users, err = r.store.ListUsers(ctx, off, p.Limit)
		if err != nil {
			return nil, err
		}
	}
	return &types.PaginatedUsersResponse{
		Success:    true,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: p.TotalPages(total),
		Data:       users,
	}, nil
}
