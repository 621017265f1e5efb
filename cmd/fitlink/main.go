package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fitproapp/fitlink/internal/account"
	"github.com/fitproapp/fitlink/internal/config"
	"github.com/fitproapp/fitlink/internal/credstore"
	"github.com/fitproapp/fitlink/internal/deeplink"
	"github.com/fitproapp/fitlink/internal/gateway"
	"github.com/fitproapp/fitlink/internal/identity"
	"github.com/fitproapp/fitlink/internal/linking"
	"github.com/fitproapp/fitlink/internal/metrics"
	"github.com/fitproapp/fitlink/internal/observability/logger"
	"github.com/fitproapp/fitlink/internal/provider"
)

// app wires the shared dependencies once per invocation.
type app struct {
	cfg        *config.Config
	store      credstore.Store
	gw         *gateway.Client
	dispatcher *deeplink.Dispatcher
	manager    *linking.Manager
}

func (a *app) account(name string) (*account.Account, error) {
	p, err := a.cfg.Provider(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (want one of: music, wearable)", err, name)
	}
	return account.New(p, a.gw, a.store, a.manager), nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "fitlink",
	})
	_ = metrics.Register(nil)

	store, err := credstore.New(credstore.Config{
		Driver:     cfg.Store.Driver,
		Prefix:     cfg.Store.Prefix,
		Path:       cfg.Store.File.Path,
		Passphrase: cfg.Store.File.Passphrase,
		Addr:       cfg.Store.Redis.Addr,
		Password:   cfg.Store.Redis.Password,
		DB:         cfg.Store.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	tokens := &identity.StoreSource{Store: store}
	gw := gateway.New(cfg.Gateway.BaseURL, tokens, cfg.Gateway.Timeout)
	dispatcher := deeplink.NewDispatcher()
	manager := linking.NewManager(linking.Deps{
		Gateway: gw,
		Store:   store,
		Tokens:  tokens,
		Links:   dispatcher,
		Open:    openOrPrint,
	}, cfg.Linking.Timeout)

	return &app{cfg: cfg, store: store, gw: gw, dispatcher: dispatcher, manager: manager}, nil
}

// openOrPrint tries the system browser and falls back to printing the
// URL (headless machines, ssh sessions).
func openOrPrint(url string) error {
	if err := deeplink.OpenBrowser(url); err != nil {
		fmt.Printf("Open this URL to continue:\n\n  %s\n\n", url)
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var a *app

	root := &cobra.Command{
		Use:           "fitlink",
		Short:         "Link and inspect third-party fitness accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cfgPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("FITLINK_CONFIG", ""), "path to fitlink.yaml (env FITLINK_CONFIG)")

	root.AddCommand(loginCmd(&a))
	root.AddCommand(logoutCmd(&a))
	root.AddCommand(statusCmd(&a))
	root.AddCommand(linkCmd(&a))
	root.AddCommand(unlinkCmd(&a))
	root.AddCommand(showCmd(&a))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loginCmd(a **app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the app session token used for gateway calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = strings.TrimSpace(envOr("FITLINK_SESSION_TOKEN", ""))
			}
			if token == "" {
				return fmt.Errorf("--token is required (or env FITLINK_SESSION_TOKEN)")
			}
			if err := (*a).store.Set(cmd.Context(), credstore.SessionTokenKey, token, 0); err != nil {
				return err
			}
			fmt.Println("session token stored")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token issued by the app backend")
	return cmd
}

func logoutCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the session token and every cached linked identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for _, p := range provider.All() {
				acc := account.New(p, (*a).gw, (*a).store, (*a).manager)
				acc.ClearLocal(ctx)
			}
			if err := (*a).store.Delete(ctx, credstore.SessionTokenKey); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func statusCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection status of every provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			type row struct {
				name      string
				connected bool
				accountID string
			}
			rows := make([]row, len(provider.All()))

			g, gctx := errgroup.WithContext(ctx)
			for i, p := range provider.All() {
				i, p := i, p
				g.Go(func() error {
					acc := account.New(p, (*a).gw, (*a).store, (*a).manager)
					connected := acc.CheckStatus(gctx)
					id, _ := acc.StoredAccountID(gctx)
					rows[i] = row{name: p.Name, connected: connected, accountID: id}
					return nil
				})
			}
			_ = g.Wait() // CheckStatus never errors

			for _, r := range rows {
				state := "not connected"
				if r.connected {
					state = "connected"
				}
				if r.accountID != "" {
					fmt.Printf("%-10s %s (account %s)\n", r.name, state, r.accountID)
				} else {
					fmt.Printf("%-10s %s\n", r.name, state)
				}
			}
			return nil
		},
	}
}

func linkCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <provider>",
		Short: "Run the account-linking flow for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			acc, err := (*a).account(args[0])
			if err != nil {
				return err
			}

			lb := deeplink.NewLoopback((*a).dispatcher, (*a).cfg.Linking.CallbackAddr, (*a).cfg.Linking.CallbackPath)
			if err := lb.Start(); err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = lb.Stop(sctx)
			}()

			fmt.Printf("Linking %s account; finish the login in your browser...\n", acc.Provider().DisplayName)
			res, err := acc.Link(ctx)
			if err != nil {
				if linking.Retryable(err) {
					fmt.Println("Linking did not finish:", err)
					return nil
				}
				return err
			}
			fmt.Printf("Linked %s account %s\n", acc.Provider().DisplayName, res.AccountID)
			return nil
		},
	}
}

func unlinkCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <provider>",
		Short: "Disconnect a linked provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := (*a).account(args[0])
			if err != nil {
				return err
			}
			ok, err := acc.Unlink(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("backend did not confirm the disconnect")
			}
			fmt.Printf("Unlinked %s\n", acc.Provider().DisplayName)
			return nil
		},
	}
}

func showCmd(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <profile|recovery|workouts|playlist|playing> <provider>",
		Short: "Fetch provider data through the backend proxy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			acc, err := (*a).account(args[1])
			if err != nil {
				return err
			}

			var raw json.RawMessage
			switch args[0] {
			case "profile":
				raw, err = acc.Profile(ctx)
			case "recovery":
				raw, err = acc.Recovery(ctx)
			case "workouts":
				raw, err = acc.Workouts(ctx)
			case "playlist":
				raw, err = acc.Playlist(ctx)
			case "playing":
				raw, err = acc.CurrentlyPlaying(ctx)
			default:
				return fmt.Errorf("unknown data kind %q", args[0])
			}
			if err != nil {
				return err
			}

			var v any
			if json.Unmarshal(raw, &v) == nil {
				pretty, _ := json.MarshalIndent(v, "", "  ")
				fmt.Println(string(pretty))
				return nil
			}
			fmt.Println(string(raw))
			return nil
		},
	}
	return cmd
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
