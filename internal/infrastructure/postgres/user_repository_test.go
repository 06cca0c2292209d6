package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
)

var userRowColumns = []string{"id", "username", "email", "password_hash", "role", "verified"}

func sampleUser() *model.User {
	return &model.User{
		ID:           42,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "pbkdf2$sha256$210000$salt$key",
		Role:         model.RoleUser,
		Verified:     true,
	}
}

func userRow(mock pgxmock.PgxPoolIface, u *model.User) *pgxmock.Rows {
	return mock.NewRows(userRowColumns).AddRow(
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.Verified,
	)
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name    string
		mockFn  func(mock pgxmock.PgxPoolIface, user *model.User)
		wantErr error
	}{
		{
			name: "successful creation fills the generated id",
			mockFn: func(mock pgxmock.PgxPoolIface, user *model.User) {
				mock.ExpectQuery("INSERT INTO users").
					WithArgs(user.Username, user.Email, user.PasswordHash, string(user.Role), user.Verified).
					WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(42)))
			},
			wantErr: nil,
		},
		{
			name: "duplicate username or email",
			mockFn: func(mock pgxmock.PgxPoolIface, user *model.User) {
				mock.ExpectQuery("INSERT INTO users").
					WithArgs(user.Username, user.Email, user.PasswordHash, string(user.Role), user.Verified).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: repository.ErrDuplicateUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("pgxmock.NewPool() error = %v", err)
			}
			defer mock.Close()

			user := sampleUser()
			user.ID = 0
			tt.mockFn(mock, user)

			repo := NewUserRepository(mock)
			err = repo.Create(context.Background(), user)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && user.ID != 42 {
				t.Errorf("ID = %d, want 42 from RETURNING", user.ID)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUserRepository_FindByUsername(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("pgxmock.NewPool() error = %v", err)
		}
		defer mock.Close()

		want := sampleUser()
		mock.ExpectQuery("SELECT(.+)FROM users").
			WithArgs("alice").
			WillReturnRows(userRow(mock, want))

		repo := NewUserRepository(mock)
		got, err := repo.FindByUsername(context.Background(), "alice")
		if err != nil {
			t.Fatalf("FindByUsername() error = %v", err)
		}
		if got.ID != 42 || got.Role != model.RoleUser || !got.Verified {
			t.Errorf("got = %+v", got)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("pgxmock.NewPool() error = %v", err)
		}
		defer mock.Close()

		mock.ExpectQuery("SELECT(.+)FROM users").
			WithArgs("ghost").
			WillReturnRows(mock.NewRows(userRowColumns))

		repo := NewUserRepository(mock)
		if _, err := repo.FindByUsername(context.Background(), "ghost"); !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("FindByUsername() error = %v, want ErrUserNotFound", err)
		}
	})
}

func TestUserRepository_FindByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("pgxmock.NewPool() error = %v", err)
		}
		defer mock.Close()

		want := sampleUser()
		mock.ExpectQuery("SELECT(.+)FROM users").
			WithArgs("alice@example.com").
			WillReturnRows(userRow(mock, want))

		repo := NewUserRepository(mock)
		got, err := repo.FindByEmail(context.Background(), "alice@example.com")
		if err != nil {
			t.Fatalf("FindByEmail() error = %v", err)
		}
		if got.Username != "alice" {
			t.Errorf("got = %+v", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("pgxmock.NewPool() error = %v", err)
		}
		defer mock.Close()

		mock.ExpectQuery("SELECT(.+)FROM users").
			WithArgs("ghost@example.com").
			WillReturnRows(mock.NewRows(userRowColumns))

		repo := NewUserRepository(mock)
		if _, err := repo.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("FindByEmail() error = %v, want ErrUserNotFound", err)
		}
	})
}

func TestUserRepository_MarkVerified(t *testing.T) {
	t.Run("updates the flag", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("pgxmock.NewPool() error = %v", err)
		}
		defer mock.Close()

		mock.ExpectExec("UPDATE users SET verified").
			WithArgs(int64(42)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewUserRepository(mock)
		if err := repo.MarkVerified(context.Background(), 42); err != nil {
			t.Fatalf("MarkVerified() error = %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("pgxmock.NewPool() error = %v", err)
		}
		defer mock.Close()

		mock.ExpectExec("UPDATE users SET verified").
			WithArgs(int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewUserRepository(mock)
		if err := repo.MarkVerified(context.Background(), 7); !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("MarkVerified() error = %v, want ErrUserNotFound", err)
		}
	})
}
