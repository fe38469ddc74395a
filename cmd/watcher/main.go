// File: cmd/watcher/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/multichain-watcher/internal/balance"
	"github.com/smartdevs17/multichain-watcher/internal/chain"
	"github.com/smartdevs17/multichain-watcher/internal/command"
	"github.com/smartdevs17/multichain-watcher/internal/config"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

var rootCmd = &cobra.Command{
	Use:               "multichain-watcher",
	Short:             "Multichain address watcher",
	Long:              `Watches tracked addresses on EVM chains, Solana and TON, reports inbound and outbound transfers and answers balance queries.`,
	Version:           AppVersion,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnv,
	RunE:              runWatcher,
}

// loadEnv reads .env when present; real environment variables win
func loadEnv(cmd *cobra.Command, args []string) error {
	path := viper.GetString("env-file")
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return utils.WrapError(utils.ErrCodeStartupConfig, "Failed to read env file", err)
	}
	return nil
}

// loadConfig loads, overrides from flags, validates and applies logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if viper.GetBool("debug") {
		cfg.App.Debug = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := initializeLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runWatcher(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApplication(ctx, cfg)
	if err != nil {
		return err
	}
	if err := app.Start(); err != nil {
		app.Stop()
		return err
	}

	<-ctx.Done()
	utils.GetLogger().Info("Received shutdown signal, stopping application")
	return app.Stop()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Multichain Watcher %s\n", AppVersion)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		for _, c := range cfg.ChainConfigs() {
			fmt.Printf("Chain: %-10s family=%s\n", c.ID, c.Family)
		}
		fmt.Printf("Storage: %s\n", cfg.Storage.Type)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <network> <address>",
	Short: "Query the native balance of an address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		set, err := chain.NewSet(cfg.ChainConfigs(), chainOptions(cfg, nil))
		if err != nil {
			return err
		}
		defer set.Close()

		handler := command.NewHandler(cfg.ChainConfigs(), nil, balance.NewService(set, nil))
		fmt.Println(handler.Handle(cmd.Context(), "/balance "+strings.Join(args, " ")))
		return nil
	},
}

var addAddressCmd = &cobra.Command{
	Use:   "addaddress <network> <address>",
	Short: "Track an address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), &cfg.Storage, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		reg := registry.New(store, nil)
		if err := reg.Load(cmd.Context()); err != nil {
			return err
		}
		handler := command.NewHandler(cfg.ChainConfigs(), reg, nil)
		fmt.Println(handler.Handle(cmd.Context(), "/addaddress "+strings.Join(args, " ")))
		return nil
	},
}

// checkCmd probes every configured chain and the address store
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test connectivity to chains and storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		set, err := chain.NewSet(cfg.ChainConfigs(), chainOptions(cfg, nil))
		if err != nil {
			return err
		}
		defer set.Close()

		failed := 0
		for _, a := range set.All() {
			if a.Family() == models.FamilyTON {
				fmt.Printf("- %-10s balance only, no scan\n", a.ChainID())
				continue
			}
			start := time.Now()
			height, err := a.GetHeight(ctx)
			if err != nil {
				failed++
				fmt.Printf("✗ %-10s %v\n", a.ChainID(), err)
				continue
			}
			fmt.Printf("✓ %-10s head=%d (%s)\n", a.ChainID(), height, time.Since(start).Round(time.Millisecond))
		}

		store, err := openStore(ctx, &cfg.Storage, nil)
		if err != nil {
			failed++
			fmt.Printf("✗ storage    %v\n", err)
		} else {
			defer store.Close()
			fmt.Printf("✓ storage    %s\n", cfg.Storage.Type)
		}

		if failed > 0 {
			return utils.NewAppError(utils.ErrCodeExternal, "Connectivity check failed", fmt.Sprintf("%d component(s) unreachable", failed))
		}
		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading config")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(addAddressCmd)
	rootCmd.AddCommand(checkCmd)
	configCmd.AddCommand(validateConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
