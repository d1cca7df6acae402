package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"medai-intake/internal/config"
	"medai-intake/internal/integrations/analysis"
	"medai-intake/internal/integrations/paramstore"
	"medai-intake/internal/navigation"
	"medai-intake/internal/observability/metrics"
	"medai-intake/internal/session"
	"medai-intake/internal/usecase"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	flagBaseURL      string
	flagLogLevel     string
	flagSessionStore string
	flagSessionFile  string
	flagStart        string
)

var rootCmd = &cobra.Command{
	Use:   "medai-intake",
	Short: "Chest-pain intake client for the MedAI analysis service",
	Long: `medai-intake walks a patient through the chest-pain intake: a symptom
check, a short profile form, a scripted ten-question conversation and the
resulting diagnosis ranking. All scoring happens in the remote analysis service.

Run without arguments to start the interactive intake.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		logger = config.NewLogger(os.Stderr, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	RunE: runIntake,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive intake",
	RunE:  runIntake,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the server-side diagnosis for the stored session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.client.ResetDiagnosis(cmd.Context()); err != nil {
			return fmt.Errorf("reset diagnosis: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "진단 정보가 초기화되었습니다.")
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo [email]",
	Short: "Request a product demo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		demo, err := usecase.NewDemo(a.client, logger)
		if err != nil {
			return err
		}
		msg, err := demo.Request(cmd.Context(), args[0])
		if err != nil {
			return errors.New(usecase.UserMessage(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Analysis service base URL including /api/analyze (or set ANALYSIS_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (or set LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagSessionStore, "session-store", "", "file, memory or dynamodb (or set SESSION_STORE)")
	rootCmd.PersistentFlags().StringVar(&flagSessionFile, "session-file", "", "Session file path for the file store (or set SESSION_FILE)")
	rootCmd.Flags().StringVar(&flagStart, "start", string(navigation.RouteHome), "View to open first")
	runCmd.Flags().StringVar(&flagStart, "start", string(navigation.RouteHome), "View to open first")

	rootCmd.AddCommand(runCmd, resetCmd, demoCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("medai-intake failed", "err", err)
		os.Exit(1)
	}
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		c.AnalysisBaseURL = flagBaseURL
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("session-store") {
		c.SessionStore = flagSessionStore
	}
	if flags.Changed("session-file") {
		c.SessionFile = flagSessionFile
	}
}

func runIntake(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	start, ok := navigation.ParseRoute(flagStart)
	if !ok {
		return fmt.Errorf("unknown start view %q", flagStart)
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	flow, err := buildFlow(a, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return flow.Run(ctx, start, navigation.Handoff{})
}

// app holds the long-lived clients shared by every command.
type app struct {
	client  *analysis.Client
	metrics *metrics.ClientMetrics
	server  *http.Server
}

func (a *app) close() {
	if a.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", "err", err)
	}
}

func buildApp(ctx context.Context) (*app, error) {
	// ---- Session store ----
	var store session.Store
	switch cfg.SessionStore {
	case config.StoreMemory:
		store = session.NewMemoryStore()
	case config.StoreFile:
		path := cfg.SessionFile
		if path == "" {
			path = session.DefaultFilePath()
		}
		fs, err := session.NewFileStore(path)
		if err != nil {
			return nil, fmt.Errorf("create session file store: %w", err)
		}
		store = fs
	}

	// ---- AWS SDK config (only when a component needs it) ----
	if cfg.NeedsAWS() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		if cfg.ParamPrefix != "" {
			params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				return nil, fmt.Errorf("create SSM client: %w", err)
			}
			if err := cfg.ApplyParams(ctx, params); err != nil {
				return nil, err
			}
		}
		if cfg.SessionStore == config.StoreDynamoDB {
			ds, err := session.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), cfg.SessionTable, cfg.SessionOwner)
			if err != nil {
				return nil, fmt.Errorf("create session table store: %w", err)
			}
			store = ds
		}
	}

	sess, err := session.New(store, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg)
	a := &app{metrics: m}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	// ---- Analysis client ----
	a.client, err = analysis.NewClient(sess,
		analysis.WithBaseURL(cfg.AnalysisBaseURL),
		analysis.WithDemoRequestURL(cfg.DemoRequestURL),
		analysis.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		analysis.WithRecorder(m),
		analysis.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
