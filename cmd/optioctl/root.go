package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"optio-backend/application/cache"
	"optio-backend/application/commands/bus"
	"optio-backend/application/ports"
	querybus "optio-backend/application/queries/bus"
	"optio-backend/application/session"
	"optio-backend/infrastructure/chain"
	"optio-backend/infrastructure/config"
	"optio-backend/infrastructure/di"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootFlags struct {
	configFile string
	rpcURL     string
	contract   string
	logLevel   string
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:   "optioctl",
	Short: "Read and write the Optio narrative contract",
	Long: `optioctl talks to the narrative contract directly over JSON-RPC.
Reads need only RPC_URL and CONTRACT_ADDRESS. Writes also need
WALLET_PRIVATE_KEY in the environment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML configuration file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&flags.rpcURL, "rpc-url", "", "JSON-RPC endpoint (overrides RPC_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.contract, "contract", "", "narrative contract address (overrides CONTRACT_ADDRESS)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides LOG_LEVEL, default error)")
}

// app is the slice of the service a single CLI invocation needs
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	client     *chain.Client
	writer     ports.NarrativeWriter
	sessions   *session.Manager
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
}

func (a *app) Close() {
	a.client.Close()
	_ = a.logger.Sync()
}

// newApp loads configuration and dials the contract. Flags take precedence
// over the environment.
func newApp(ctx context.Context, out io.Writer) (*app, error) {
	overrides := map[string]string{
		"CONFIG_FILE":      flags.configFile,
		"RPC_URL":          flags.rpcURL,
		"CONTRACT_ADDRESS": flags.contract,
		"LOG_LEVEL":        flags.logLevel,
	}
	if flags.logLevel == "" && os.Getenv("LOG_LEVEL") == "" {
		overrides["LOG_LEVEL"] = "error"
	}
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	metrics := di.ProvideMetrics()
	client, _, err := di.ProvideChainClient(ctx, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	writer, err := di.ProvideWallet(client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	notifier := &consoleNotifier{out: out}
	readThrough := cache.NewReadThrough(client, logger)
	sessions := di.ProvideSessionManager(readThrough, cfg, metrics, logger)

	commandBus, err := di.ProvideCommandBus(cfg, writer, client, client, sessions, notifier, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	queryBus, err := di.ProvideQueryBus(readThrough, sessions, client, writer, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		writer:     writer,
		sessions:   sessions,
		commandBus: commandBus,
		queryBus:   queryBus,
	}, nil
}

// withApp runs fn with a connected app and closes it afterwards
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// consoleNotifier prints status messages. Views are rendered by the caller.
type consoleNotifier struct {
	out io.Writer
}

func (n *consoleNotifier) SendToSession(_ string, messageType string, data interface{}) error {
	if messageType != ports.MessageStatus {
		return nil
	}
	if status, ok := data.(ports.Status); ok {
		fmt.Fprintf(n.out, "[%s] %s\n", status.Level, status.Message)
	}
	return nil
}

func (n *consoleNotifier) Broadcast(messageType string, data interface{}) error {
	return n.SendToSession("", messageType, data)
}
