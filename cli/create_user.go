package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sudolite/sudolite/auth"
	"github.com/sudolite/sudolite/database"
	"github.com/sudolite/sudolite/types"
)

var (
	createUserName     string
	createUserEmail    string
	createUserPassword string
	createUserEligible bool
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if createUserName == "" || createUserPassword == "" {
			return fmt.Errorf("--username and --password are required")
		}

		hash, err := auth.HashPassword(createUserPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		db, err := database.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		users := database.NewUserStore(db)
		user, err := users.CreateUser(context.Background(), &types.User{
			Username:          createUserName,
			Email:             createUserEmail,
			CredentialHash:    hash,
			ElevationEligible: createUserEligible,
		})
		if err != nil {
			return err
		}

		fmt.Printf("created user %q (id %d, elevation eligible: %v)\n", user.Username, user.ID, user.ElevationEligible)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&createUserName, "username", "", "username (required)")
	createUserCmd.Flags().StringVar(&createUserEmail, "email", "", "email address")
	createUserCmd.Flags().StringVar(&createUserPassword, "password", "", "password (required)")
	createUserCmd.Flags().BoolVar(&createUserEligible, "eligible", false, "allow the user to request admin elevation")
}
