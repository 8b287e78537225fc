package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/SubnetScope/internal/app"
	"github.com/Alias1177/SubnetScope/internal/config"
)

var (
	inputPath  string
	logLevel   string
	alertLimit int
)

var rootCmd = &cobra.Command{
	Use:   "subnetscope",
	Short: "Bittensor subnet anomaly, risk and investment analysis",
	Long: `SubnetScope analyzes Bittensor subnet metrics: it detects anomalies
against rolling baselines, assesses technical, governance and economic risk,
and scores subnets as investments. Requests are read as JSON from --input
or stdin; results are printed as JSON.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
	},
}

var anomalyCmd = &cobra.Command{
	Use:   "anomaly <subnet-id>",
	Short: "Detect anomalies for a subnet",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnomaly,
}

var riskCmd = &cobra.Command{
	Use:   "risk <subnet-id>",
	Short: "Assess the risk of a subnet",
	Args:  cobra.ExactArgs(1),
	RunE:  runRisk,
}

var investCmd = &cobra.Command{
	Use:   "invest <subnet-id>",
	Short: "Score a subnet as an investment",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvest,
}

var subnetCmd = &cobra.Command{
	Use:   "subnet <subnet-id>",
	Short: "Show subnet metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubnet,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts <subnet-id>",
	Short: "List stored alerts of a subnet",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlerts,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (defaults to LOG_LEVEL)")

	for _, cmd := range []*cobra.Command{anomalyCmd, riskCmd, investCmd} {
		cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON request file, - or empty for stdin")
	}
	alertsCmd.Flags().IntVar(&alertLimit, "limit", 20, "Maximum number of alerts")

	rootCmd.AddCommand(anomalyCmd, riskCmd, investCmd, subnetCmd, alertsCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging configures the logger
func setupLogging(level string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(parsed)
}

// buildApp loads configuration and wires the components.
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
