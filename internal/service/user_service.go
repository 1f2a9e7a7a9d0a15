package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/invoice-api/internal/model"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// UserLister pages through the credential store.  repository.UserRepo
// implements it.
type UserLister interface {
	List(ctx context.Context, limit, offset int) ([]model.User, int, error)
}

// PageMeta describes where a page sits in the full result.
type PageMeta struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// UserPage is one page of users.
type UserPage struct {
	Users []model.User
	Meta  PageMeta
}

// UserService backs the admin user listing.
type UserService struct {
	users UserLister
}

func NewUserService(users UserLister) *UserService {
	return &UserService{users: users}
}

// List returns a page of users, newest first.  page below 1 becomes 1 and
// limit is clamped to [1, 100], with 0 meaning the default of 20.
func (s *UserService) List(ctx context.Context, page, limit int) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = defaultPageLimit
	case limit < 1:
		limit = 1
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	users, total, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	totalPages := (total + limit - 1) / limit
	return UserPage{
		Users: users,
		Meta: PageMeta{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}, nil
}
