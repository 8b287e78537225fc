package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/SubnetScope/internal/server"
	"github.com/Alias1177/SubnetScope/internal/service"
)

func runAnomaly(cmd *cobra.Command, args []string) error {
	var req service.AnomalyRequest
	id, err := parseRequest(cmd, args, &req)
	if err != nil {
		return err
	}
	req.SubnetID = id

	return withApp(cmd, func(ctx context.Context, a *service.Analyzer) (any, error) {
		return a.DetectAnomalies(ctx, req)
	})
}

func runRisk(cmd *cobra.Command, args []string) error {
	var req service.RiskRequest
	id, err := parseRequest(cmd, args, &req)
	if err != nil {
		return err
	}
	req.SubnetID = id

	return withApp(cmd, func(ctx context.Context, a *service.Analyzer) (any, error) {
		return a.AssessRisk(ctx, req)
	})
}

func runInvest(cmd *cobra.Command, args []string) error {
	var req service.InvestmentRequest
	id, err := parseRequest(cmd, args, &req)
	if err != nil {
		return err
	}
	req.SubnetID = id

	return withApp(cmd, func(ctx context.Context, a *service.Analyzer) (any, error) {
		return a.Recommend(ctx, req)
	})
}

func runSubnet(cmd *cobra.Command, args []string) error {
	id, err := subnetArg(args)
	if err != nil {
		return err
	}
	return withApp(cmd, func(_ context.Context, a *service.Analyzer) (any, error) {
		return a.Subnet(id)
	})
}

func runAlerts(cmd *cobra.Command, args []string) error {
	id, err := subnetArg(args)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *service.Analyzer) (any, error) {
		return a.RecentAlerts(ctx, id, alertLimit)
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewServer(server.DefaultConfig(a.Config.HTTPAddr), a.Analyzer, a.Metrics.Handler())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// withApp builds the components, runs fn and prints its result as JSON.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *service.Analyzer) (any, error)) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := fn(ctx, a.Analyzer)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func parseRequest(cmd *cobra.Command, args []string, dst any) (int, error) {
	id, err := subnetArg(args)
	if err != nil {
		return 0, err
	}
	in, closeFn, err := openInput(cmd.InOrStdin(), inputPath)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	if err := decodeRequest(in, dst); err != nil {
		return 0, err
	}
	return id, nil
}

func subnetArg(args []string) (int, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("subnet id %q is not a number", args[0])
	}
	return id, nil
}

// openInput returns stdin for an empty path or "-".
func openInput(stdin io.Reader, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// decodeRequest reads one JSON request. Empty input is a request without
// metrics, so stored history is used.
func decodeRequest(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
