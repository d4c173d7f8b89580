// Command delegatord runs the delegation-based key-value scripting server
// described by spec.md §6: `delegatord <port> [<admin_password>]`.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/addisoncrump/delegatord/internal/dispatch"
	"github.com/addisoncrump/delegatord/internal/hash"
	"github.com/addisoncrump/delegatord/internal/logging"
	"github.com/addisoncrump/delegatord/internal/server"
	"github.com/addisoncrump/delegatord/internal/store"
)

// passwordPattern is the restricted alphabet of §6, shared with the
// lexer's string-literal alphabet.
var passwordPattern = regexp.MustCompile(`^[A-Za-z0-9_ ,;\.?!-]*$`)

const (
	maxAdminPasswordBytes = 4096
	defaultAdminPassword  = "admin"
)

func main() {
	var debug bool

	root := &cobra.Command{
		Use:           "delegatord <port> [<admin_password>]",
		Short:         "Run the delegation-based key-value scripting server",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, debug)
		},
	}
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(255)
	}
}

func run(args []string, debug bool) error {
	logging.Init(debug)

	port, err := parsePort(args[0])
	if err != nil {
		return err
	}

	adminPassword := defaultAdminPassword
	if len(args) == 2 {
		adminPassword = args[1]
	}
	if err := validateAdminPassword(adminPassword); err != nil {
		return err
	}

	db := store.New(hash.Sum(adminPassword))
	disp := dispatch.New(db)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		os.Exit(0)
	}()

	return server.Serve(ctx, ln, disp)
}

// parsePort enforces §6's exact rejection conditions: missing, a leading
// zero, out of [1024, 65536).
func parsePort(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("port is required")
	}
	if s[0] == '0' {
		return 0, fmt.Errorf("port must not begin with '0'")
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if n < 1024 || n >= 65536 {
		return 0, fmt.Errorf("port %d out of range [1024, 65536)", n)
	}
	return int(n), nil
}

func validateAdminPassword(pw string) error {
	if len(pw) > maxAdminPasswordBytes {
		return fmt.Errorf("admin password exceeds %d bytes", maxAdminPasswordBytes)
	}
	if !passwordPattern.MatchString(pw) {
		return fmt.Errorf("admin password contains a disallowed character")
	}
	return nil
}
