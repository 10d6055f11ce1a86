package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // reference zones resolve without a system zoneinfo

	"cancel_sweep/internal/app"
	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/infra"
	"cancel_sweep/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f app.Flags
	configPath := fs.String("c", infra.DefaultConfigPath, "Configuration file.")
	fs.StringVar(&f.Order, "o", "", "Order ID.")
	fs.StringVar(&f.Account, "a", "", "Account name.")
	fs.StringVar(&f.Region, "r", "", "The region to cancel (*, country, market or SYMBOL.MARKET).")
	fs.StringVar(&f.Begin, "b", "", "Start date (YYYY-MM-DD [HH:MM:SS]).")
	fs.StringVar(&f.End, "e", "", "End date (YYYY-MM-DD [HH:MM:SS]).")
	fs.StringVar(&f.Message, "m", service.DefaultMessage, "Cancel message.")

	var q app.AuditQuery
	fs.IntVar(&q.Runs, "runs", 0, "List the N most recent runs from the journal.")
	fs.StringVar(&q.Run, "run", "", "Show a journaled run and its attempts.")
	fs.StringVar(&q.Order, "history", "", "Show every journaled attempt on an order ID.")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if q.IsSet() {
		if f.Order != "" || f.Account != "" || f.Region != "" {
			fmt.Fprintln(stderr, "Journal queries cannot be combined with -o, -a or -r.")
			return 2
		}
		return audit(*configPath, q, stdout, stderr)
	}

	req, err := app.BuildRequest(f)
	if errors.Is(err, domain.ErrNoScope) {
		fmt.Fprintln(stderr, "The -o, -a or -r argument is required.")
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := app.NewBootstrap()
	defer bootstrap.Close()

	if err := bootstrap.Initialize(ctx, *configPath); err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			fmt.Fprintf(stderr, "%s not found\n", *configPath)
			return 1
		}
		fmt.Fprintln(stderr, err)
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		return 1
	}

	report, err := bootstrap.Canceller.Run(ctx, req)
	if report != nil {
		printReport(stdout, report)
		slog.Info("Run finished",
			slog.Any("report", report),
			slog.Any("metrics", infra.GlobalMetrics.Snapshot()))
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			fmt.Fprintf(stderr, "Account %s not found.\n", req.Account)
		case errors.Is(err, domain.ErrOrderNotFound):
			fmt.Fprintf(stderr, "Order %d not found.\n", *req.OrderID)
		default:
			fmt.Fprintln(stderr, err)
		}
		slog.Error("Run failed", slog.Any("error", err))
		return 1
	}
	if report.HasFailures() {
		return 1
	}
	return 0
}

func audit(configPath string, q app.AuditQuery, stdout, stderr io.Writer) int {
	bootstrap := app.NewBootstrap()
	defer bootstrap.Close()

	if err := bootstrap.OpenJournal(configPath); err != nil {
		switch {
		case errors.Is(err, domain.ErrConfigNotFound):
			fmt.Fprintf(stderr, "%s not found\n", configPath)
		case errors.Is(err, app.ErrNoJournal):
			fmt.Fprintln(stderr, "No journal path is configured.")
		default:
			fmt.Fprintln(stderr, err)
		}
		return 1
	}

	if err := app.Audit(context.Background(), bootstrap.Journal, q, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func printReport(w io.Writer, r *service.Report) {
	fmt.Fprintf(w, "Run %s (%s)\n", r.RunID, r.Scope)
	fmt.Fprintf(w, "  attempted:        %d\n", r.Attempted)
	fmt.Fprintf(w, "  canceled:         %d\n", r.Canceled)
	fmt.Fprintf(w, "  already terminal: %d\n", r.AlreadyTerminal)
	fmt.Fprintf(w, "  failed:           %d\n", r.Failed)
	fmt.Fprintf(w, "  reports written:  %d\n", r.Writes)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  order %d (%s): %v\n", f.OrderID, f.Account, f.Err)
	}
	for _, f := range r.AccountFailures {
		fmt.Fprintf(w, "  account %s: %v\n", f.Account, f.Err)
	}
}
