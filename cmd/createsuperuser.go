package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"restaurant-menu/apperr"
	"restaurant-menu/config"
	"restaurant-menu/models"
	"restaurant-menu/store"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

func newCreateSuperuserCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create the superuser named by SUPERUSER_USERNAME, SUPERUSER_EMAIL and SUPERUSER_PASSWORD",
		Long: `Create a superuser from the environment.

The account is read from SUPERUSER_USERNAME, SUPERUSER_EMAIL and
SUPERUSER_PASSWORD; the DJANGO_SUPERUSER_* names are accepted as well.
Nothing happens when one of them is missing or the user already exists,
so the command is safe to run on every deploy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, ok := superuserFromEnv(os.Getenv)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "One or more environment variables are missing.")
				return nil
			}
			db, err := config.InitDB(v.GetString("db.path"))
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			return createSuperuser(cmd.Context(), store.New(db), creds, v.GetInt("auth.bcrypt_cost"), cmd.OutOrStdout())
		},
	}
}

type superuser struct {
	Username string
	Email    string
	Password string
}

// superuserFromEnv reads the superuser account, preferring the SUPERUSER_*
// names. ok is false when any value is missing.
func superuserFromEnv(getenv func(string) string) (superuser, bool) {
	lookup := func(name string) string {
		if v := strings.TrimSpace(getenv("SUPERUSER_" + name)); v != "" {
			return v
		}
		return strings.TrimSpace(getenv("DJANGO_SUPERUSER_" + name))
	}
	s := superuser{
		Username: lookup("USERNAME"),
		Email:    lookup("EMAIL"),
		Password: lookup("PASSWORD"),
	}
	return s, s.Username != "" && s.Email != "" && s.Password != ""
}

func createSuperuser(ctx context.Context, st *store.Store, s superuser, cost int, out io.Writer) error {
	_, err := st.FindUserByUsername(ctx, s.Username)
	switch {
	case err == nil:
		fmt.Fprintf(out, "Superuser %q already exists.\n", s.Username)
		return nil
	case !apperr.Is(err, apperr.ENotFound):
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), cost)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}
	user := &models.User{
		Username:     s.Username,
		Email:        s.Email,
		PasswordHash: string(hash),
		IsSuperuser:  true,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(out, "Superuser %q created.\n", s.Username)
	return nil
}
