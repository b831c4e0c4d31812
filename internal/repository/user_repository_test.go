package repository

import (
	"context"
	"testing"
	"time"

	"warehouse/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Feature: warehouse, Property: operator accounts store bcrypt hashes only
func TestProperty_UserCreationStoresHashedPasswords(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(email string, password string, firstName string, lastName string) bool {
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			user := &domain.User{
				ID:           uuid.New(),
				Email:        email,
				PasswordHash: string(hashedPassword),
				FirstName:    firstName,
				LastName:     lastName,
				Role:         domain.RoleStaff,
				CreatedAt:    now(),
				UpdatedAt:    now(),
			}

			err = repo.Create(ctx, user)
			if err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			retrievedUser, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			// Verify the password is hashed (not equal to plaintext)
			if retrievedUser.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}

			// Verify the stored hash is a valid bcrypt hash by comparing
			err = bcrypt.CompareHashAndPassword([]byte(retrievedUser.PasswordHash), []byte(password))
			if err != nil {
				t.Logf("Stored password is not a valid bcrypt hash: %v", err)
				return false
			}

			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			return true
		},
		// Generate valid email addresses
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		// Generate passwords with at least 8 characters
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	resetTables(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	user := &domain.User{
		ID: uuid.New(), Email: "ops@warehouse.test", PasswordHash: "x",
		Role: domain.RoleAdmin, CreatedAt: now(), UpdatedAt: now(),
	}
	require.NoError(t, repo.Create(ctx, user))

	user.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(ctx, user), ErrUserAlreadyExists)

	count, err := repo.CountByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	resetTables(t)
	users := NewUserRepository(testDB)
	tokens := NewRefreshTokenRepository(testDB)
	ctx := context.Background()

	user := &domain.User{
		ID: uuid.New(), Email: "staff@warehouse.test", PasswordHash: "x",
		Role: domain.RoleStaff, CreatedAt: now(), UpdatedAt: now(),
	}
	require.NoError(t, users.Create(ctx, user))

	active := &domain.RefreshToken{ID: uuid.New(), UserID: user.ID, Token: "active", ExpiresAt: now().Add(time.Hour), CreatedAt: now()}
	expired := &domain.RefreshToken{ID: uuid.New(), UserID: user.ID, Token: "expired", ExpiresAt: now().Add(-time.Hour), CreatedAt: now()}
	require.NoError(t, tokens.Create(ctx, active))
	require.NoError(t, tokens.Create(ctx, expired))

	found, err := tokens.FindByToken(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)

	deleted, err := tokens.DeleteExpired(ctx, now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	revoked, err := tokens.RevokeAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, revoked)

	_, err = tokens.FindByToken(ctx, "active")
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	assert.ErrorIs(t, tokens.Revoke(ctx, "missing"), ErrRefreshTokenNotFound)
}
