package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		users, err := application.Users.List(cobraCmd.Context())
		if err != nil {
			return err
		}
		if len(users) == 0 {
			pterm.Info.Println("no accounts")
			return nil
		}

		data := pterm.TableData{{"ID", "USERNAME", "EMAIL", "ROLE", "ACTIVE", "PICTURE"}}
		for _, u := range users {
			picture := u.ProfilePicture
			if picture == "" {
				picture = "-"
			}
			data = append(data, []string{
				strconv.FormatInt(u.ID, 10),
				u.Username,
				u.Email,
				string(u.Role),
				strconv.FormatBool(u.Active()),
				picture,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}
