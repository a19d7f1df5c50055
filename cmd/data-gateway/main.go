package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diwise/data-gateway/internal/pkg/application/dashboard"
	datagateway "github.com/diwise/data-gateway/internal/pkg/application/data-gateway"
	"github.com/diwise/data-gateway/internal/pkg/infrastructure/router"
	"github.com/diwise/data-gateway/internal/pkg/presentation/api/rest"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName string = "data-gateway"

func DefaultFlags() FlagMap {
	return FlagMap{
		listenAddress: "",
		servicePort:   "8080",

		configPath: "/opt/diwise/config/data-gateway.yaml",
		opaPath:    "/opt/diwise/config/authz.rego",

		logFormat: "json",
	}
}

func main() {
	flags := parseExternalConfig(context.Background(), DefaultFlags())

	ctx, log, cleanup := o11y.Init(context.Background(), serviceName, buildinfo.SourceVersion(), flags[logFormat])
	defer cleanup()

	gatewayConfig, err := os.Open(flags[configPath])
	exitIf(log, err, "failed to open the gateway configuration file", "path", flags[configPath])
	defer gatewayConfig.Close()

	policies, err := os.Open(flags[opaPath])
	exitIf(log, err, "failed to open the opa policy file", "path", flags[opaPath])
	defer policies.Close()

	handler, shutdown, err := initialize(ctx, flags, &AppConfig{
		gatewayConfig: gatewayConfig,
		opaConfig:     policies,
		secrets: datagateway.Secrets{
			APIKey: env.GetVariableOrDefault(ctx, "DATA_GATEWAY_API_KEY", ""),
			Debug:  env.GetVariableOrDefault(ctx, "DATA_GATEWAY_DEBUG", "false"),
		},
	})
	exitIf(log, err, "failed to initialize the data gateway")
	defer shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort(flags[listenAddress], flags[servicePort]),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down http server", "err", err.Error())
		}
	}()

	log.Info("starting to listen for connections", "addr", srv.Addr)

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitIf(log, err, "failed to listen for connections")
	}

	log.Info("shut down complete")
}

// initialize connects to the configured provider and returns a handler
// serving the rest api, along with a function that releases the provider
func initialize(ctx context.Context, flags FlagMap, cfg *AppConfig) (http.Handler, func(), error) {
	gwConfig, err := datagateway.LoadConfiguration(cfg.gatewayConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load gateway configuration: %w", err)
	}

	client, shutdown, err := datagateway.NewProvider(ctx, gwConfig.Provider, cfg.secrets)
	if err != nil {
		return nil, nil, err
	}

	gw := datagateway.New(client, gwConfig, dashboard.Options()...)

	r := router.New(ctx, serviceName)

	err = rest.RegisterHandlers(ctx, r, cfg.opaConfig, gwConfig.Provider.Type, gw, dashboard.New(gw))
	if err != nil {
		shutdown()
		return nil, nil, err
	}

	return otelhttp.NewHandler(r, serviceName), shutdown, nil
}

func parseExternalConfig(ctx context.Context, flags FlagMap) FlagMap {

	// Allow environment variables to override certain defaults
	envOrDef := env.GetVariableOrDefault
	flags[listenAddress] = envOrDef(ctx, "LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef(ctx, "SERVICE_PORT", flags[servicePort])
	flags[configPath] = envOrDef(ctx, "DATA_GATEWAY_CONFIG_PATH", flags[configPath])
	flags[opaPath] = envOrDef(ctx, "DATA_GATEWAY_POLICIES", flags[opaPath])

	apply := func(f FlagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("config", "path to the gateway configuration file", apply(configPath))
	flag.Func("policies", "an authorization policy file", apply(opaPath))
	flag.Func("port", "the port to listen for connections on", apply(servicePort))
	flag.Func("logformat", "log format to use (json or text)", apply(logFormat))
	flag.Parse()

	return flags
}

func exitIf(log *slog.Logger, err error, msg string, args ...any) {
	if err != nil {
		log.With(args...).Error(msg, "err", err.Error())
		os.Exit(1)
	}
}
