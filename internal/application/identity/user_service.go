package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/shared"
)

// UserService lets administrators manage accounts
type UserService struct {
	userRepo identity.UserRepository
}

func NewUserService(userRepo identity.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Create registers an account. Distributors are identified by the id
// assigned here.
func (s *UserService) Create(ctx context.Context, actor identity.Actor, req CreateUserRequest) (*UserInfo, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	return s.create(ctx, req)
}

// Bootstrap creates the first administrator when no account exists yet.
// It reports false when accounts already exist.
func (s *UserService) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	n, err := s.userRepo.Count(ctx, shared.Filter{})
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err = s.create(ctx, CreateUserRequest{Username: username, Password: password, Role: string(identity.RoleAdmin)})
	return err == nil, err
}

func (s *UserService) create(ctx context.Context, req CreateUserRequest) (*UserInfo, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Username is already taken")
	}
	user, err := identity.NewUser(req.Username, req.DisplayName, req.Password, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	info := toUserInfo(user)
	return &info, nil
}

// List returns a page of accounts
func (s *UserService) List(ctx context.Context, actor identity.Actor, filter UserListFilter) ([]UserInfo, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, shared.ErrForbidden
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "username",
		OrderDir: "asc",
		Filters:  map[string]any{},
	}
	if filter.Role != "" {
		domainFilter.Filters["role"] = identity.Role(filter.Role)
	}

	users, err := s.userRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.userRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserInfo, 0, len(users))
	for i := range users {
		out = append(out, toUserInfo(&users[i]))
	}
	return out, total, nil
}

// Deactivate blocks an account from logging in
func (s *UserService) Deactivate(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserInfo, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	if actor.UserID == id {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Administrators cannot deactivate themselves")
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Deactivate()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	info := toUserInfo(user)
	return &info, nil
}
