package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront_pay/internal/bootstrap"
	"storefront_pay/internal/gateway"
	"storefront_pay/internal/models"
	"storefront_pay/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gatewayctl",
		Short:        "Manage payment gateway settings",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(activateCmd())
	rootCmd.AddCommand(deactivateCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	repo   *services.GatewaySettingsRepo
	logger *zap.Logger
}

func openRepo() (*env, error) {
	cfg, logger := bootstrap.Load()
	db, err := bootstrap.OpenDatabase(cfg, logger, true)
	if err != nil {
		return nil, err
	}
	repo, err := bootstrap.SettingsRepo(cfg, db)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, errors.New("CREDENTIALS_ENCRYPTION_KEY is not set")
	}
	return &env{repo: repo, logger: logger}, nil
}

func setCmd() *cobra.Command {
	var in services.GatewaySettingInput
	var activate, testMode bool

	cmd := &cobra.Command{
		Use:   "set [provider]",
		Short: "Create or update a provider's settings (credentials are stored encrypted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openRepo()
			if err != nil {
				return err
			}
			in.Provider = models.PaymentGateway(args[0])
			if cmd.Flags().Changed("test-mode") {
				in.TestMode = lo.ToPtr(testMode)
			}
			setting, err := e.repo.Save(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s settings (id %d)\n", setting.Provider, setting.ID)

			if activate {
				if err := e.repo.Activate(cmd.Context(), setting.Provider); err != nil {
					return err
				}
				fmt.Printf("Activated %s\n", setting.Provider)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.APIKey, "api-key", "", "API key / key id")
	cmd.Flags().StringVar(&in.APISecret, "api-secret", "", "API secret / server key")
	cmd.Flags().StringVar(&in.MerchantID, "merchant-id", "", "Merchant id")
	cmd.Flags().StringVar(&in.WebhookSecret, "webhook-secret", "", "Webhook signing secret")
	cmd.Flags().StringVar(&in.PayeeVPA, "payee-vpa", "", "UPI VPA that receives payments")
	cmd.Flags().StringVar(&in.PayeeName, "payee-name", "", "Payee display name")
	cmd.Flags().BoolVar(&testMode, "test-mode", true, "Use the provider's sandbox (new settings default to true, updates keep the current value unless set)")
	cmd.Flags().IntVar(&in.TimeoutSeconds, "timeout", 0, "Request timeout in seconds (0 keeps the current value)")
	cmd.Flags().IntVar(&in.MaxRetries, "max-retries", -1, "Retries for status checks (-1 keeps the current value)")
	cmd.Flags().BoolVar(&activate, "activate", false, "Activate the provider after saving")

	return cmd
}

func activateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate [provider]",
		Short: "Make a provider the active gateway (takes effect on restart)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openRepo()
			if err != nil {
				return err
			}
			provider := models.PaymentGateway(args[0])
			if err := e.repo.Activate(cmd.Context(), provider); err != nil {
				if errors.Is(err, services.ErrSettingNotFound) {
					return fmt.Errorf("no settings saved for %q, run `gatewayctl set %s` first", provider, provider)
				}
				return err
			}
			fmt.Printf("Activated %s\n", provider)
			return nil
		},
	}
}

func deactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate all providers and fall back to the mock gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openRepo()
			if err != nil {
				return err
			}
			if err := e.repo.Deactivate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("All gateways deactivated; the mock gateway will be used")
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved provider settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openRepo()
			if err != nil {
				return err
			}
			settings, err := e.repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(settings) == 0 {
				fmt.Println("No gateway settings saved")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tACTIVE\tTEST MODE\tPAYEE VPA\tTIMEOUT\tRETRIES\tUPDATED")
			for _, s := range settings {
				fmt.Fprintf(w, "%s\t%t\t%t\t%s\t%ds\t%d\t%s\n",
					s.Provider, s.IsActive, s.IsTestMode, s.PayeeVPA, s.TimeoutSeconds, s.MaxRetries, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve the gateway the server would use right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := bootstrap.Load()
			db, err := bootstrap.OpenDatabase(cfg, logger, false)
			if err != nil {
				return err
			}
			var source gateway.SettingsSource
			repo, err := bootstrap.SettingsRepo(cfg, db)
			if err != nil {
				return err
			}
			if repo != nil {
				source = repo
			}

			adapter := gateway.NewRegistry(source, cfg.FallbackGateway(), 0, logger).Resolve(cmd.Context())
			fmt.Printf("Active gateway: %s\n", adapter.Name())
			return nil
		},
	}
}
