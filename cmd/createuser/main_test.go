package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type recorder struct {
	calls []directory.NewAccount
	err   error
}

func (r *recorder) create(ctx context.Context, acct directory.NewAccount) (models.User, error) {
	r.calls = append(r.calls, acct)
	if r.err != nil {
		return models.User{}, r.err
	}
	return models.User{ID: uuid.New(), Email: acct.Email, Role: acct.Role}, nil
}

func run(t *testing.T, rec *recorder, args ...string) (string, error) {
	t.Helper()
	cmd := newCommand(rec.create)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateUserCommand(t *testing.T) {
	rec := &recorder{}
	out, err := run(t, rec,
		"--first", "Lerato", "--last", "Mokoena", "--email", " lerato@x.test ",
		"--cohort", "C7", "--specialisation", "Data")
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)

	acct := rec.calls[0]
	assert.Equal(t, "lerato@x.test", acct.Email)
	assert.Equal(t, models.RoleTrainee, acct.Role)
	assert.Equal(t, "C7", acct.Cohort)
	assert.Equal(t, "Data", acct.Specialisation)
	assert.Contains(t, out, "created lerato@x.test (trainee)")
}

func TestCreateUserCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing email", []string{"--first", "A", "--last", "B"}, `required flag(s) "email"`},
		{"blank name", []string{"--first", " ", "--last", "B", "--email", "a@x.test"}, "must not be blank"},
		{"bad email", []string{"--first", "A", "--last", "B", "--email", "nope"}, "invalid email"},
		{"bad role", []string{"--first", "A", "--last", "B", "--email", "a@x.test", "--role", "boss"}, "unknown role"},
		{"positional args", []string{"--first", "A", "--last", "B", "--email", "a@x.test", "extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			_, err := run(t, rec, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, rec.calls)
		})
	}
}

func TestCreateUserCommandReportsFailure(t *testing.T) {
	rec := &recorder{err: errors.New("duplicate email")}
	_, err := run(t, rec, "--first", "A", "--last", "B", "--email", "a@x.test", "--role", models.RoleFacilitator)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate email")
	require.Len(t, rec.calls, 1)
	assert.Equal(t, models.RoleFacilitator, rec.calls[0].Role)
}
