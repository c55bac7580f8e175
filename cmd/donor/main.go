// Command donor is the donor-facing client. It connects a wallet, shows the
// merged donor view and submits registry transactions.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"organchain/internal/platform/config"
	"organchain/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	assumeYes := flag.Bool("yes", false, "approve wallet connection and signing prompts")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *assumeYes, flag.Args(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "donor:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, assumeYes bool, args []string, stdin io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	// Shell input and wallet prompts share one reader so neither loses
	// buffered lines.
	in := bufio.NewReader(stdin)
	a, err := newApp(ctx, cfg, appOptions{
		in:        in,
		out:       out,
		assumeYes: assumeYes,
		logger:    log,
	})
	if err != nil {
		return err
	}
	defer a.close()

	return a.dispatch(ctx, args)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "donor - organ donor registry client")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  donor [-config file] [-yes] status")
	fmt.Fprintln(w, "  donor [-config file] [-yes] register -name NAME -age N -blood TYPE -organs a,b [-history TEXT] [-email ADDR] [-phone N] [-emergency TEXT]")
	fmt.Fprintln(w, "  donor [-config file] [-yes] revoke")
	fmt.Fprintln(w, "  donor [-config file] [-yes] pending")
	fmt.Fprintln(w, "  donor [-config file] [-yes] shell")
	fmt.Fprintln(w, "\nEnvironment Variables:")
	fmt.Fprintln(w, "  ORGANCHAIN_CONTRACT_ADDRESS   Registry contract (required)")
	fmt.Fprintln(w, "  ORGANCHAIN_PROFILE_URL        Profile store base URL")
	fmt.Fprintln(w, "  ORGANCHAIN_JWT_SIGNING_KEY    Key shared with the profile store (required)")
	fmt.Fprintln(w, "  ORGANCHAIN_WALLET_BACKEND     memory or keystore")
	fmt.Fprintln(w, "  ORGANCHAIN_LEDGER_TRANSPORT   memory or fabric")
}
