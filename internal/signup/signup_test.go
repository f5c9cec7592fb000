package signup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
	"github.com/tasuki-ai/tasuki/internal/testutil"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"user+tag@example.com", true},
		{"user@sub.domain.com", true},
		{"user.name@example.co.uk", true},
		{"", false},
		{"not-an-email", false},
		{"@example.com", false},
		{"user@", false},
		{"user@.com", false},
		{"user@example", false},
	}
	for _, tt := range tests {
		err := validateEmail(tt.email)
		if tt.valid {
			assert.NoError(t, err, "expected %q to be valid", tt.email)
		} else {
			assert.ErrorIs(t, err, ErrInvalidEmail, "expected %q to be invalid", tt.email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"StrongP@ss123", true},
		{"Abcdefghij1x", true},
		{"short1A", false},       // too short
		{"alllowercase1", false}, // no uppercase
		{"ALLUPPERCASE1", false}, // no lowercase
		{"AllLettersNoDigit", false},
		{"", false},
	}
	for _, tt := range tests {
		err := validatePassword(tt.password)
		if tt.valid {
			assert.NoError(t, err, "expected %q to be valid", tt.password)
		} else {
			assert.ErrorIs(t, err, ErrWeakPassword, "expected %q to be rejected", tt.password)
		}
	}
}

// fakeUserStore records created users and serves token verification in memory.
type fakeUserStore struct {
	users  []model.User
	nextID int64
}

func (f *fakeUserStore) CreateUser(_ context.Context, u model.User) (model.User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return model.User{}, storage.ErrEmailTaken
		}
	}
	f.nextID++
	u.ID = f.nextID
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeUserStore) VerifyUserByToken(_ context.Context, token string) (model.User, error) {
	for i, u := range f.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			f.users[i].IsVerified = true
			f.users[i].VerificationToken = nil
			return f.users[i], nil
		}
	}
	return model.User{}, storage.ErrNotFound
}

func newTestService(store *fakeUserStore) *Service {
	return New(store, Config{BaseURL: "http://localhost:8080"}, testutil.TestLogger())
}

func TestSignupCreatesUser(t *testing.T) {
	store := &fakeUserStore{}
	svc := newTestService(store)

	result, err := svc.Signup(context.Background(), SignupInput{
		Email:    "Alice@Example.com",
		Password: "CorrectHorse1Battery",
		FullName: "Alice Example",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.Email)
	assert.Equal(t, "check your email to verify your account", result.Message)

	require.Len(t, store.users, 1)
	u := store.users[0]
	assert.True(t, u.IsActive)
	assert.False(t, u.IsVerified)
	require.NotNil(t, u.VerificationToken)
	assert.Len(t, *u.VerificationToken, 64) // 32 random bytes hex-encoded
	require.NotNil(t, u.FullName)
	assert.Equal(t, "Alice Example", *u.FullName)

	// The stored hash must verify against the submitted password.
	ok, err := auth.VerifyPassword("CorrectHorse1Battery", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	svc := newTestService(&fakeUserStore{})

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "bob@example.com",
		Password: "weak",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSignupDuplicateEmail(t *testing.T) {
	store := &fakeUserStore{}
	svc := newTestService(store)

	input := SignupInput{Email: "carol@example.com", Password: "CorrectHorse1Battery"}
	_, err := svc.Signup(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), input)
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestVerifyMarksUserVerified(t *testing.T) {
	store := &fakeUserStore{}
	svc := newTestService(store)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "dave@example.com",
		Password: "CorrectHorse1Battery",
	})
	require.NoError(t, err)
	token := *store.users[0].VerificationToken

	user, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	// A second use of the same token fails.
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
