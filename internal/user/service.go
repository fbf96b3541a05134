// Package user 账户管理与边缘认证。
package user

import (
	"context"
	"strings"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/store"
)

// Service 账户业务。
type Service struct {
	users store.Repository[model.User]
	log   logger.Logger
}

func NewService(users store.Repository[model.User], log logger.Logger) *Service {
	return &Service{users: users, log: log}
}

// CreateAccount 开户。邮箱不得含冒号（凭据串的分隔符），
// 邮箱重复返回固定文案。staff 标志由调用方（边缘层）把关。
func (s *Service) CreateAccount(ctx context.Context, in *contract.CreateAccountInput) (*contract.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.InvalidProperty("A valid email address is required")
	}
	if strings.Contains(email, ":") {
		return nil, apperr.InvalidProperty("Email address must not contain ':'")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, apperr.InvalidProperty("Full name is required")
	}
	if len(in.Password) < 6 {
		return nil, apperr.InvalidProperty("Password must be at least 6 characters")
	}

	existing, err := s.users.Find(ctx, func(u *model.User) bool {
		return strings.EqualFold(u.Email, email)
	})
	if err != nil {
		return nil, apperr.Server(err)
	}
	if len(existing) > 0 {
		return nil, apperr.ErrEmailInUse
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Server(err)
	}

	u := &model.User{
		FullName:     in.FullName,
		Email:        email,
		PasswordHash: hash,
		Staff:        in.Staff,
		PhoneNumber:  in.PhoneNumber,
		Street:       in.Street,
		City:         in.City,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, apperr.Server(err)
	}
	if s.log != nil {
		s.log.Infof("account created id=%d staff=%v", u.ID, u.Staff)
	}

	out := contract.NewUser(u)
	return &out, nil
}

// Authenticate 校验邮箱口令；requireStaff 为真时还要求员工标志。
func (s *Service) Authenticate(ctx context.Context, email, password string, requireStaff bool) (*model.User, error) {
	found, err := s.users.Find(ctx, func(u *model.User) bool {
		return strings.EqualFold(u.Email, strings.TrimSpace(email))
	})
	if err != nil {
		return nil, apperr.Server(err)
	}
	if len(found) == 0 {
		return nil, apperr.ErrNotAuthorized
	}
	u := &found[0]
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, apperr.ErrNotAuthorized
	}
	if requireStaff && !u.Staff {
		return nil, apperr.ErrNotAuthorized
	}
	return u, nil
}

// GetAccountDetails 按主键取账户资料。
func (s *Service) GetAccountDetails(ctx context.Context, userID int) (*contract.User, error) {
	u, err := s.users.GetByID(ctx, uint(userID))
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.InvalidProperty("Unknown user")
		}
		return nil, apperr.Server(err)
	}
	out := contract.NewUser(u)
	return &out, nil
}

// SearchUser 员工按邮箱查找普通用户；员工账户不在结果中。
func (s *Service) SearchUser(ctx context.Context, in *contract.SearchUserInput) (*contract.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, apperr.InvalidProperty("Email address is required")
	}
	found, err := s.users.Find(ctx, func(u *model.User) bool {
		return !u.Staff && strings.EqualFold(u.Email, email)
	})
	if err != nil {
		return nil, apperr.Server(err)
	}
	if len(found) == 0 {
		return nil, apperr.InvalidProperty("Unknown user")
	}
	out := contract.NewUser(&found[0])
	return &out, nil
}
