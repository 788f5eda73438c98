package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var validate = validator.New()

func newLoginCmd(c *cli) *cobra.Command {
	var (
		email  string
		logout bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend and store the token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openStore(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			backend, _, err := newBackend(ctx, c.cfg, db)
			if err != nil {
				return err
			}

			if logout {
				if err := backend.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			}

			if email == "" {
				fmt.Fprint(cmd.OutOrStdout(), "email: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}

			fmt.Fprint(cmd.OutOrStdout(), "password: ")
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			input := domain.UserLogin{Email: email, Password: string(password)}
			if err := validate.Struct(input); err != nil {
				return fmt.Errorf("invalid credentials: %w", err)
			}

			auth, err := backend.Login(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", auth.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&logout, "logout", false, "discard the stored token")
	return cmd
}
