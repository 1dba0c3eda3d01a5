package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/shmvec"
	metricsprom "github.com/hupe1980/shmvec/metrics/prometheus"
	"github.com/hupe1980/shmvec/rpc"
)

type hostOptions struct {
	config string
	cfg    HostConfig
}

// NewHostCommand creates the host command.
func NewHostCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &hostOptions{cfg: DefaultHostConfig()}

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Own a namespace and serve allocation commands",
		Long: `Create a namespace and serve alloc, free and exit commands from one
client process at a time until an exit command or a signal arrives.
Vectors live as long as the host does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&opts.cfg.LogLevel, "log-level", opts.cfg.LogLevel, "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.cfg.LogFormat, "log-format", opts.cfg.LogFormat, "log format (text|json)")
	cmd.Flags().Int64Var(&opts.cfg.CommitLimitBytes, "commit-limit", 0, "commit budget in bytes (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.cfg.CopyWindows, "copy-windows", false, "copy windows instead of mapping them in place")
	cmd.Flags().DurationVar(&opts.cfg.PollInterval, "poll-interval", opts.cfg.PollInterval, "liveness check interval")
	cmd.Flags().BoolVar(&opts.cfg.StayUp, "stay-up", false, "keep serving after the client exits")
	cmd.Flags().StringVar(&opts.cfg.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

// resolveHostConfig merges the config file, flags that were set, and the
// global --dir/--ns flags, in increasing precedence.
func resolveHostConfig(rootOpts *RootOptions, opts *hostOptions, cmd *cobra.Command) (HostConfig, error) {
	cfg := DefaultHostConfig()
	if opts.config != "" {
		var err error
		if cfg, err = LoadHostConfig(opts.config); err != nil {
			return cfg, WrapExitError(ExitCommandError, "load config", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.cfg.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.cfg.LogFormat
	}
	if flags.Changed("commit-limit") {
		cfg.CommitLimitBytes = opts.cfg.CommitLimitBytes
	}
	if flags.Changed("copy-windows") {
		cfg.CopyWindows = opts.cfg.CopyWindows
	}
	if flags.Changed("poll-interval") {
		cfg.PollInterval = opts.cfg.PollInterval
	}
	if flags.Changed("stay-up") {
		cfg.StayUp = opts.cfg.StayUp
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.cfg.MetricsAddr
	}
	if rootOpts.Dir != "" {
		cfg.Dir = rootOpts.Dir
	}
	if rootOpts.Namespace != "" {
		cfg.Namespace = rootOpts.Namespace
	}
	if cfg.Dir == "" {
		cfg.Dir = shmvec.DefaultDir()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = uuid.Must(uuid.NewV7()).String()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid host settings", err)
	}
	return cfg, nil
}

type hostInfo struct {
	Dir       string `json:"dir"`
	Namespace string `json:"namespace"`
	PID       int    `json:"pid"`
	Metrics   string `json:"metrics,omitempty"`
}

func runHost(rootOpts *RootOptions, opts *hostOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	cfg, err := resolveHostConfig(rootOpts, opts, cmd)
	if err != nil {
		return f.Fail(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := startHost(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "start host", err))
	}

	info := hostInfo{Dir: cfg.Dir, Namespace: cfg.Namespace, PID: os.Getpid(), Metrics: h.metricsAddr()}
	if err := f.Success(info, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "hosting namespace %s in %s (pid %d)\n", info.Namespace, info.Dir, info.PID)
		return err
	}); err != nil {
		_ = h.close()
		return err
	}

	err = h.serve(ctx)
	if cerr := h.close(); err == nil {
		err = cerr
	}
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "host", err))
	}
	return nil
}

// runningHost bundles the registry, command block and metrics server of a
// host process.
type runningHost struct {
	cfg     HostConfig
	log     *shmvec.Logger
	reg     *shmvec.Registry
	host    *rpc.Host
	metrics *http.Server
	ln      net.Listener
}

func newLogger(cfg HostConfig, w io.Writer) *shmvec.Logger {
	level, _ := cfg.level()
	ho := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return shmvec.NewLogger(slog.NewJSONHandler(w, ho))
	}
	return shmvec.NewLogger(slog.NewTextHandler(w, ho))
}

func startHost(ctx context.Context, cfg HostConfig, logOut io.Writer) (*runningHost, error) {
	h := &runningHost{cfg: cfg, log: newLogger(cfg, logOut)}

	regOpts := []shmvec.Option{
		shmvec.WithDir(cfg.Dir),
		shmvec.WithNamespace(cfg.Namespace),
		shmvec.WithLogger(h.log),
		shmvec.WithCopyWindows(cfg.CopyWindows),
	}
	if cfg.CommitLimitBytes > 0 {
		regOpts = append(regOpts, shmvec.WithCommitLimit(cfg.CommitLimitBytes))
	}

	if cfg.MetricsAddr != "" {
		promReg := prometheus.NewRegistry()
		collector, err := metricsprom.New(promReg, metricsprom.Options{
			ConstLabels: prometheus.Labels{"namespace": cfg.Namespace},
		})
		if err != nil {
			return nil, err
		}
		regOpts = append(regOpts, shmvec.WithMetricsCollector(collector))

		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", cfg.MetricsAddr)
		if err != nil {
			return nil, fmt.Errorf("listen metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		h.ln = ln
		h.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := h.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				h.log.Error("metrics server failed", "error", err)
			}
		}()
	}

	reg, err := shmvec.NewRegistry(regOpts...)
	if err != nil {
		_ = h.close()
		return nil, err
	}
	h.reg = reg

	host, err := rpc.NewHost(reg, rpc.WithLogger(h.log), rpc.WithPollInterval(cfg.PollInterval))
	if err != nil {
		_ = h.close()
		return nil, err
	}
	h.host = host
	return h, nil
}

func (h *runningHost) metricsAddr() string {
	if h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}

// serve runs Listen until exit. A signal is a clean shutdown.
func (h *runningHost) serve(ctx context.Context) error {
	for {
		err := h.host.Listen(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, context.Canceled):
			h.log.Info("host interrupted")
			return nil
		case errors.Is(err, rpc.ErrClientGone) && h.cfg.StayUp:
			continue
		default:
			return err
		}
	}
}

func (h *runningHost) close() error {
	var errs []error
	if h.host != nil {
		errs = append(errs, h.host.Close())
	}
	if h.reg != nil {
		errs = append(errs, h.reg.Close())
	}
	if h.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, h.metrics.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
