package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bizdesk/internal/app"
	"bizdesk/internal/domain"
	"bizdesk/internal/twofactor"
)

func loginCmd() *cobra.Command {
	var email, password, code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the API",
		Long:  "Signs in with e-mail and password. Accounts with two-factor enabled are asked for a 6-digit authenticator code.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				var err error
				if email, err = valueOrPrompt(email, "Email", false); err != nil {
					return err
				}
				if password, err = valueOrPrompt(password, "Password", true); err != nil {
					return err
				}
				res, err := rt.Client.Login(ctx, email, password)
				if err != nil {
					return err
				}
				user := res.User
				if res.RequiresTwoFactor {
					if code, err = valueOrPrompt(code, "Authentication code", false); err != nil {
						return err
					}
					if !twofactor.ValidCode(code) {
						return twofactor.ErrCodeFormat
					}
					if user, err = rt.Client.CompleteChallenge(ctx, res.TempToken, code); err != nil {
						return err
					}
				}
				return printJSONOrDetail(user, func() {
					fmt.Printf("Signed in as %s <%s>\n", user.Name, user.Email)
				})
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&code, "code", "", "authenticator code, when two-factor is enabled")
	return cmd
}

func registerCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				var err error
				if name, err = valueOrPrompt(name, "Name", false); err != nil {
					return err
				}
				if email, err = valueOrPrompt(email, "Email", false); err != nil {
					return err
				}
				if password, err = valueOrPrompt(password, "Password", true); err != nil {
					return err
				}
				user, err := rt.Client.Register(ctx, name, email, password)
				if err != nil {
					return err
				}
				return printJSONOrDetail(user, func() {
					fmt.Printf("Welcome, %s. You are signed in.\n", user.Name)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "account password (min 8 characters)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and drop the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.Client.Logout(ctx); err != nil {
					return err
				}
				fmt.Println("Signed out.")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				user, err := rt.Client.Me(ctx)
				if err != nil {
					return err
				}
				return printJSONOrDetail(user, func() { printUser(user) })
			})
		},
	}
}

func printUser(u domain.User) {
	fmt.Println(titleStyle.Render(u.Name) + " <" + u.Email + ">")
	state := "off"
	if u.TwoFactorEnabled {
		state = "on"
	}
	fmt.Printf("  id: %d  two-factor: %s\n", u.ID, state)
}

func twoFactorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "2fa",
		Short: "Manage two-factor authentication",
	}
	cmd.AddCommand(twoFactorStatusCmd())
	cmd.AddCommand(twoFactorSetupCmd())
	cmd.AddCommand(twoFactorVerifyCmd())
	cmd.AddCommand(twoFactorDisableCmd())
	return cmd
}

func startFlow(ctx context.Context, rt *app.Runtime) (*twofactor.Flow, error) {
	flow := rt.TwoFactor()
	flow.Logger = rt.Logger
	if err := flow.Start(ctx); err != nil {
		return nil, err
	}
	return flow, nil
}

func twoFactorStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether two-factor is enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				enabled, err := rt.Client.TwoFactorStatus(ctx)
				if err != nil {
					return err
				}
				return printJSONOrDetail(map[string]bool{"enabled": enabled}, func() {
					if enabled {
						fmt.Println("Two-factor authentication is enabled.")
						return
					}
					fmt.Println("Two-factor authentication is disabled. Run bzd 2fa setup to enable it.")
				})
			})
		},
	}
}

func twoFactorSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Provision an authenticator secret",
		Long:  "Provisions a secret for an authenticator app. The secret is kept for this session, so running setup again shows the same one until it is verified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				flow, err := startFlow(ctx, rt)
				if err != nil {
					return err
				}
				if flow.State() == twofactor.StateAlreadyEnabled {
					fmt.Println("Two-factor authentication is already enabled.")
					return nil
				}
				prov, _ := flow.Provisioning()
				if viper.GetBool("json") {
					return printJSON(prov)
				}
				fmt.Println("Add this account to your authenticator app:")
				fmt.Printf("  otpauth: %s\n", prov.QRPayload)
				fmt.Printf("  secret:  %s\n", prov.Secret)
				fmt.Printf("\nThen run bzd 2fa verify <code> (current code valid for %ds).\n", twofactor.SecondsRemaining(time.Now()))
				return nil
			})
		},
	}
}

func twoFactorVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [code]",
		Short: "Confirm the provisioned secret",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				flow, err := startFlow(ctx, rt)
				if err != nil {
					return err
				}
				if flow.State() == twofactor.StateAlreadyEnabled {
					fmt.Println("Two-factor authentication is already enabled.")
					return nil
				}
				var code string
				if len(args) == 1 {
					code = args[0]
				}
				for {
					if code, err = valueOrPrompt(code, "Authentication code", false); err != nil {
						return err
					}
					outcome, err := flow.Verify(ctx, code)
					if outcome == twofactor.OutcomeVerified {
						fmt.Println("Two-factor authentication enabled.")
						return nil
					}
					if !isInteractive() || errors.Is(err, context.Canceled) {
						return err
					}
					fmt.Println(errorPanel(err))
					code = ""
				}
			})
		},
	}
}

func twoFactorDisableCmd() *cobra.Command {
	var password string
	var yes bool
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Turn two-factor off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				flow := rt.TwoFactor()
				flow.Logger = rt.Logger
				enabled, err := flow.CheckStatus(ctx)
				if err != nil {
					return err
				}
				if !enabled {
					fmt.Println("Two-factor authentication is not enabled.")
					return nil
				}
				if err := flow.RequestDisable(); err != nil {
					return err
				}
				if !yes && isInteractive() {
					ok, err := promptConfirm("Disable two-factor authentication?")
					if err != nil {
						return err
					}
					if !ok {
						flow.CancelDisable()
						fmt.Println("Cancelled.")
						return nil
					}
				}
				if password, err = valueOrPrompt(password, "Password", true); err != nil {
					return err
				}
				if err := flow.ConfirmDisable(ctx, password); err != nil {
					return err
				}
				fmt.Println("Two-factor authentication disabled.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
