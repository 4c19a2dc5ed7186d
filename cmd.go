package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/auth"
	"github.com/thetruth/truthterm/infra/backend"
	"github.com/thetruth/truthterm/infra/config"
	"github.com/thetruth/truthterm/infra/editor"
	"github.com/thetruth/truthterm/infra/logging"
	"github.com/thetruth/truthterm/infra/query"
	"github.com/thetruth/truthterm/infra/realtime"
	"github.com/thetruth/truthterm/tui"
	"github.com/thetruth/truthterm/tui/compose"
)

type rootOptions struct {
	configFile string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	v, c, d := runtimeVersionInfo()

	root := &cobra.Command{
		Use:           "truthterm",
		Short:         "The Truth, from your terminal",
		Long:          "truthterm is a terminal client for The Truth: read the live feed, post, comment, like and vote.",
		Version:       v,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.SetVersionTemplate(versionString(v, c, d))
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ~/.config/truthterm/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "write debug entries to the log file")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprint(cmd.OutOrStdout(), versionString(v, c, d))
			},
		},
	)
	return root
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long:  "Sign in and store the session. The password is read from TRUTH_PASSWORD or prompted for.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email: %w", domain.ErrMissingField)
			}
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			env, err := openAuth(opts)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			sess, err := env.auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			who := sess.User.Email
			if who == "" {
				who = strings.TrimSpace(email)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", who)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openAuth(opts)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			if err := env.auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// readPassword takes the password from TRUTH_PASSWORD, a terminal prompt, or
// the first line of piped input.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if p := os.Getenv("TRUTH_PASSWORD"); p != "" {
		return p, nil
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password: %w", domain.ErrMissingField)
	}
	return line, nil
}

type authEnv struct {
	cfg  config.Config
	log  *zap.Logger
	auth *auth.Service
}

func openAuth(opts *rootOptions) (authEnv, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return authEnv{}, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogPath, opts.debug)
	if err != nil {
		return authEnv{}, err
	}
	svc := auth.NewService(cfg.URL, cfg.AnonKey, auth.NewStore(cfg.SessionPath), log.Named("auth"))
	return authEnv{cfg: cfg, log: log, auth: svc}, nil
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	// 1. Config, logging and session.
	env, err := openAuth(opts)
	if err != nil {
		return err
	}
	defer env.log.Sync()
	cfg, log := env.cfg, env.log

	user, err := env.auth.CurrentUser(ctx)
	if errors.Is(err, domain.ErrNoSession) {
		return fmt.Errorf("%w: run `truthterm login --email you@example.com` first", err)
	}
	if err != nil {
		return err
	}
	log.Info("starting", zap.String("user_id", user.ID))

	// 2. Transports.
	client := backend.NewClient(cfg.URL, cfg.AnonKey, env.auth, cfg.RequestsPerSecond, log.Named("rest"))
	rt, err := realtime.NewClient(cfg.URL, cfg.AnonKey, env.auth, log.Named("realtime"))
	if err != nil {
		return err
	}
	defer rt.Close()

	// 3. Services (concrete types satisfy app.* interfaces).
	cache := query.New()
	uiState, err := config.LoadUIState(cfg.UIStatePath)
	if err != nil {
		log.Warn("ignoring ui state", zap.Error(err))
	}

	// 4. Wire and run the root TUI model.
	err = tui.Run(tui.Deps{
		Timeline:     backend.NewTimelineService(client, user.ID, cache, cfg.StaleTime),
		Posts:        backend.NewPostService(client, user.ID, cache),
		Interactions: backend.NewInteractionService(client, user.ID),
		Media:        backend.NewStorageService(client, user.ID, backend.MediaBucket),
		Moderator:    backend.NewModerationService(client),
		Changes:      backend.NewChangeFeed(rt, user.ID, log.Named("changes")),
		Profiles:     backend.NewProfileService(client, user.ID, cache),
		Hashtags:     backend.NewHashtagService(client, cache),
		Account:      env.auth,
		Editor:       editor.NewEnvEditor(),
		Log:          log,
		User:         user,
		ComposeMode:  compose.ParseMode(uiState.ComposeMode),
		StatePath:    cfg.UIStatePath,
		PageSize:     cfg.PageSize,
	}, tea.WithAltScreen())
	if err != nil {
		log.Error("tui exited", zap.Error(err))
	}
	return err
}
