package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/streamgrid/internal/server"
	"github.com/desertthunder/streamgrid/internal/session"
	"github.com/desertthunder/streamgrid/internal/shared"
)

const authTimeout = 2 * time.Minute

// AuthLogin signs in with the implicit grant.
//
// A relay server listens on the configured redirect URI, the browser is sent to the Twitch authorize page,
// and the fragment the relay page posts back completes the sign-in.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	tw := r.config.Credentials.Twitch
	if tw.ClientID == "" {
		return fmt.Errorf("%w: credentials.twitch.client_id is required to sign in", shared.ErrMissingCredentials)
	}

	redirect, err := url.Parse(tw.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: redirect uri %q", shared.ErrInvalidConfig, tw.RedirectURI)
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on redirect host %s: %w", redirect.Host, err)
	}

	st, err := r.openStores(ctx, false)
	if err != nil {
		ln.Close()
		return err
	}
	defer st.Close()

	sess := session.New(r.twitchClient(), st.kv, session.WithLogger(r.logger))
	return r.login(ctx, ln, sess, redirect.Path, cmd.Duration("timeout"), cmd.Bool("no-browser"))
}

// login serves the relay on ln and resolves the first fragment it receives.
func (r *Runner) login(ctx context.Context, ln net.Listener, sess *session.Session, callbackPath string, timeout time.Duration, noBrowser bool) error {
	relay := server.NewRelayHandler(callbackPath)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.RequestLogger(r.logger))
	router.Handler(relay)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	serveCtx, stopServer := context.WithCancel(ctx)
	served := make(chan error, 1)
	go func() { served <- server.ListenAndServe(serveCtx, ln, router, r.logger) }()
	defer func() {
		stopServer()
		if err := <-served; err != nil {
			r.logger.Warn("relay server stopped with error", "error", err)
		}
	}()

	authURL := sess.AuthorizeURL()
	r.writePlain("Open this URL to sign in with Twitch:\n%s\n", authURL)
	if !noBrowser {
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	var result server.RelayResult
	select {
	case result = <-relay.Result():
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: no sign-in within %v", shared.ErrTimeout, timeout)
		}
		return ctx.Err()
	}

	if err := result.Error(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if _, ok := session.ParseFragment(result.Fragment); !ok {
		return fmt.Errorf("%w: twitch returned no token", shared.ErrAuthFailed)
	}

	if err := sess.ResolveCallback(ctx, result.Fragment); err != nil {
		return err
	}

	profile, _ := sess.Profile()
	return r.writePlain("✓ Signed in as %s (%s)\n", profile.DisplayName, profile.Login)
}

// AuthLogout removes the saved user token and profile.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	st, err := r.openStores(ctx, false)
	if err != nil {
		return err
	}
	defer st.Close()

	sess := session.New(r.twitchClient(), st.kv, session.WithLogger(r.logger))
	if err := sess.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the saved sign-in. With --verify it also exercises the app credentials and the saved token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	st, err := r.openStores(ctx, false)
	if err != nil {
		return err
	}
	defer st.Close()

	client := r.twitchClient()
	sess := session.New(client, st.kv, session.WithLogger(r.logger))

	restored, err := sess.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to read saved sign-in: %w", err)
	}

	r.writePlainHeader("Twitch")
	if restored {
		profile, _ := sess.Profile()
		r.writePlain("User: ✓ %s (%s)\n", profile.DisplayName, profile.Login)
	} else {
		r.writePlain("User: ✗ Not signed in\n")
	}

	if !cmd.Bool("verify") {
		if r.config.Credentials.Twitch.HasAppCredentials() {
			return r.writePlain("App credentials: configured\n")
		}
		return r.writePlain("App credentials: ✗ missing\n")
	}

	if err := sess.FetchAppToken(ctx); err != nil {
		r.writePlain("App token: ✗ %v\n", err)
	} else {
		r.writePlain("App token: ✓ valid\n")
	}

	if restored {
		if _, err := client.FetchUser(ctx, sess.UserToken()); err != nil {
			r.writePlain("User token: ✗ %v\n", err)
		} else {
			r.writePlain("User token: ✓ valid\n")
		}
	}
	return nil
}
