package cmd

import (
	"bytes"
	"context"
	"testing"

	"restaurant-menu/config"
	"restaurant-menu/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSuperuserFromEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	s, ok := superuserFromEnv(env(map[string]string{
		"SUPERUSER_USERNAME": "admin",
		"SUPERUSER_EMAIL":    "admin@example.com",
		"SUPERUSER_PASSWORD": "pw",
	}))
	require.True(t, ok)
	assert.Equal(t, superuser{Username: "admin", Email: "admin@example.com", Password: "pw"}, s)

	s, ok = superuserFromEnv(env(map[string]string{
		"SUPERUSER_USERNAME":        "admin",
		"DJANGO_SUPERUSER_USERNAME": "ignored",
		"DJANGO_SUPERUSER_EMAIL":    "legacy@example.com",
		"DJANGO_SUPERUSER_PASSWORD": "pw",
	}))
	require.True(t, ok)
	assert.Equal(t, "admin", s.Username)
	assert.Equal(t, "legacy@example.com", s.Email)

	_, ok = superuserFromEnv(env(map[string]string{
		"SUPERUSER_USERNAME": "admin",
		"SUPERUSER_EMAIL":    "admin@example.com",
		"SUPERUSER_PASSWORD": "   ",
	}))
	assert.False(t, ok)
}

func TestCreateSuperuserIsIdempotent(t *testing.T) {
	db, err := config.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	st := store.New(db)
	ctx := context.Background()
	s := superuser{Username: "admin", Email: "admin@example.com", Password: "s3cret-pass"}

	var out bytes.Buffer
	require.NoError(t, createSuperuser(ctx, st, s, bcrypt.MinCost, &out))
	assert.Equal(t, "Superuser \"admin\" created.\n", out.String())

	out.Reset()
	require.NoError(t, createSuperuser(ctx, st, s, bcrypt.MinCost, &out))
	assert.Equal(t, "Superuser \"admin\" already exists.\n", out.String())

	user, err := st.FindUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))

	summaries, err := st.ListUserSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestCreateSuperuserCommandMissingEnv(t *testing.T) {
	for _, k := range []string{"USERNAME", "EMAIL", "PASSWORD"} {
		t.Setenv("SUPERUSER_"+k, "")
		t.Setenv("DJANGO_SUPERUSER_"+k, "")
	}
	t.Setenv("SUPERUSER_USERNAME", "admin")

	var out bytes.Buffer
	root := NewCommand(config.NewViper())
	root.SetOut(&out)
	root.SetArgs([]string{"createsuperuser"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "One or more environment variables are missing.\n", out.String())
}
