package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/client"
	"github.com/sakif/ud-notes/internal/core"
)

var (
	serverURL string
	token     string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "Take notes, grouped by subject, from the terminal",
	Long: `notes opens an interactive session against a notes server.
Sign up or sign in, create subjects, select one to filter by, and write notes.
Type "help" inside the session for the list of commands.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// Execute runs the root command until the session ends or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("NOTES_SERVER", "http://localhost:8080"), "notes server URL (env NOTES_SERVER)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("NOTES_TOKEN"), "resume a session with this access token (env NOTES_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// run wires the CORE to the HTTP client and hands it to the shell.
func run(ctx context.Context, in io.Reader, out io.Writer) error {
	logger := slog.Default()
	c := client.New(serverURL, client.WithLogger(logger))

	if token != "" {
		if _, err := c.Restore(ctx, token); err != nil {
			fmt.Fprintf(out, "Could not resume session: %s\n", apperror.Message(err))
		}
	}

	session := core.NewSessionStore(c, logger)
	defer session.Close()
	subjects := core.NewSubjectRegistry(c, session, logger)
	notes := core.NewNoteRepository(c, session, logger)
	composer := core.NewComposer(session, subjects, notes, logger)
	defer composer.Close()

	if err := composer.Start(ctx); err != nil {
		fmt.Fprintf(out, "Could not start: %s\n", apperror.Message(err))
	}

	sh := newShell(c, composer, subjects, notes, in, out)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		sh.readPassword = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return sh.run(ctx)
}
