package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"user-service/internal/domain"
	"user-service/internal/service"
)

var (
	createUsername string
	createPassword string
	createEmail    string
	createFullName string
	createAdmin    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long: `Creates an account directly in the user store. With --admin the account is
created with the ADMIN role, which is the only way to obtain one.`,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		password := createPassword
		if password == "" {
			var err error
			password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
		}

		role := domain.RoleUser
		if createAdmin {
			role = domain.RoleAdmin
		}

		user, err := application.Users.CreateAccount(cobraCmd.Context(), service.RegisterInput{
			Username: createUsername,
			Password: password,
			Email:    createEmail,
			FullName: createFullName,
		}, role)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				return fmt.Errorf("invalid account: %s", strings.Join(verr.Fields, "; "))
			}
			return err
		}

		pterm.Success.Printfln("created %s %s (id %d)", user.Role, user.Username, user.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createUsername, "username", "", "Account username")
	createCmd.Flags().StringVar(&createPassword, "password", "", "Account password (prompted when empty)")
	createCmd.Flags().StringVar(&createEmail, "email", "", "Account email")
	createCmd.Flags().StringVar(&createFullName, "full-name", "", "Display name")
	createCmd.Flags().BoolVar(&createAdmin, "admin", false, "Create the account with the ADMIN role")
	_ = createCmd.MarkFlagRequired("username")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("full-name")
}
