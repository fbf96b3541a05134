package user

import (
	"context"
	"errors"
	"testing"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/model"
	"github.com/RentalGrid/RentalGrid/internal/store"
)

func newService() *Service {
	users := store.NewMemory[model.User](
		func(u *model.User) uint { return u.ID },
		func(u *model.User, id uint) { u.ID = id },
	)
	return NewService(users, nil)
}

func accountInput(email string, staff bool) *contract.CreateAccountInput {
	return &contract.CreateAccountInput{
		FullName: "Ann Chen",
		Email:    email,
		Password: "secret1",
		Staff:    staff,
	}
}

func TestCreateAccountValidations(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   *contract.CreateAccountInput
	}{
		{"missing email", accountInput("", false)},
		{"not an email", accountInput("not-an-email", false)},
		{"colon in email", accountInput("a:b@example.com", false)},
		{"short password", &contract.CreateAccountInput{FullName: "Ann", Email: "ann@example.com", Password: "short"}},
		{"missing name", &contract.CreateAccountInput{Email: "ann@example.com", Password: "secret1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateAccount(ctx, tc.in); apperr.Status(err) != apperr.StatusInvalid {
				t.Fatalf("expected 400, got %v", err)
			}
		})
	}
}

func TestCreateAccountNormalizesAndRejectsDuplicates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.CreateAccount(ctx, accountInput("Ann@Example.COM", false))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if u.Email != "ann@example.com" {
		t.Fatalf("email not lowercased: %q", u.Email)
	}

	_, err = svc.CreateAccount(ctx, accountInput("ann@example.com", false))
	if !errors.Is(err, apperr.ErrEmailInUse) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, accountInput("ann@example.com", false)); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	u, err := svc.Authenticate(ctx, "ann@example.com", "secret1", false)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Email != "ann@example.com" {
		t.Fatalf("wrong user: %+v", u)
	}

	if _, err := svc.Authenticate(ctx, "ann@example.com", "wrong", false); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Fatalf("bad password must be unauthorized, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "secret1", false); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Fatalf("unknown email must be unauthorized, got %v", err)
	}
	// 普通用户不得通过员工通道
	if _, err := svc.Authenticate(ctx, "ann@example.com", "secret1", true); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Fatalf("non-staff must fail staff check, got %v", err)
	}
}

func TestSearchUserExcludesStaff(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, accountInput("customer@example.com", false)); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := svc.CreateAccount(ctx, accountInput("clerk@example.com", true)); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	found, err := svc.SearchUser(ctx, &contract.SearchUserInput{Email: "Customer@Example.com"})
	if err != nil {
		t.Fatalf("SearchUser: %v", err)
	}
	if found.Email != "customer@example.com" {
		t.Fatalf("wrong user: %+v", found)
	}

	if _, err := svc.SearchUser(ctx, &contract.SearchUserInput{Email: "clerk@example.com"}); apperr.Status(err) != apperr.StatusInvalid {
		t.Fatalf("staff accounts must be invisible, got %v", err)
	}
}
