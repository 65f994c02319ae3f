package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/abhisek/threatlab/internal/api"
)

// passwordEnv supplies the password for non-interactive sign-in.
const passwordEnv = "THREATLAB_PASSWORD"

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		register, _ := cmd.Flags().GetBool("register")

		var err error
		if email == "" {
			email, err = pterm.DefaultInteractiveTextInput.Show("Email")
			if err != nil {
				return errors.Wrap(err, "read email")
			}
		}
		password := os.Getenv(passwordEnv)
		if password == "" {
			password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
			if err != nil {
				return errors.Wrap(err, "read password")
			}
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		var user *api.User
		if register {
			user, err = e.svc.Session.Register(cmd.Context(), api.RegisterRequest{Email: email, Password: password})
		} else {
			user, err = e.svc.Session.Login(cmd.Context(), email, password)
		}
		if err != nil {
			return err
		}
		pterm.Success.Printf("Signed in as %s\n", user.DisplayName())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if ok, _ := e.svc.Session.CheckAuth(cmd.Context()); !ok {
			pterm.Info.Println("Not signed in.")
			return nil
		}
		e.svc.Session.Logout(cmd.Context())
		pterm.Success.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openSignedIn(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		u := e.svc.Session.User()
		rows := [][]string{
			{"Name", u.DisplayName()},
			{"Email", u.Email},
			{"Role", u.Role},
			{"Level", fmt.Sprintf("%d (%d XP)", u.Progress.Level, u.Progress.ExperiencePoints)},
		}
		if !u.CreatedAt.IsZero() {
			rows = append(rows, []string{"Member since", u.CreatedAt.Local().Format("2006-01-02")})
		}
		return pterm.DefaultTable.WithData(rows).Render()
	},
}

func init() {
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().Bool("register", false, "Create the account instead of signing in")
}
