package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/Gundoganfa/SomeNiceLinks/internal/auth"
	"github.com/Gundoganfa/SomeNiceLinks/internal/linksync"
	"github.com/Gundoganfa/SomeNiceLinks/internal/local"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/remote"
	"github.com/Gundoganfa/SomeNiceLinks/internal/seed"
)

// client is one opened session on the local collection.
type client struct {
	cfg    *viper.Viper
	log    logger.Logger
	cache  *local.Store
	mgr    *linksync.Manager
	out    io.Writer
	signIn linksync.Outcome
}

// sessionMode selects how openClient attaches the configured token.
type sessionMode int

const (
	// sessionRestore attaches the session without talking to the cloud.
	sessionRestore sessionMode = iota
	// sessionSignIn runs the sign-in transition and fails when it does.
	sessionSignIn
	// sessionSignInLater runs the sign-in transition but keeps the session
	// when the cloud is unreachable, leaving the reconcile for a retry.
	sessionSignInLater
)

// openClient opens the local cache, loads the collection and attaches the
// configured session. The sign-in modes reconcile with the cloud and replay
// pending clicks.
func openClient(ctx context.Context, v *viper.Viper, mode sessionMode, out io.Writer) (*client, error) {
	log := logger.New(v.GetString(cfgKeyLogLevel), v.GetBool(cfgKeyPrettyLog))

	defaults, err := loadDefaults(v.GetString(cfgKeyDefaultsFile))
	if err != nil {
		return nil, err
	}

	cache, err := local.Open(v.GetString(cfgKeyDataDir), log, local.Options{})
	if err != nil {
		return nil, err
	}

	rem := remote.New(v.GetString(cfgKeyServerURL), v.GetDuration(cfgKeyRequestTimeout))
	mgr := linksync.New(cache, rem, log, linksync.Options{
		Defaults: defaults.Links,
		Notifier: linksync.NotifierFunc(func(kind linksync.Kind, msg string) {
			fmt.Fprintf(os.Stderr, "%s %s\n", noticeIcon(kind), msg)
		}),
	})

	c := &client{cfg: v, log: log, cache: cache, mgr: mgr, out: out}
	if err := mgr.Load(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	if err := c.attachSession(ctx, mode); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *client) attachSession(ctx context.Context, mode sessionMode) error {
	token := c.cfg.GetString(cfgKeyToken)
	if token == "" {
		return nil
	}
	user, err := auth.OwnerFromToken(token)
	if err != nil {
		return fmt.Errorf("configured token: %w", err)
	}

	session := linksync.Session{
		UserID: user,
		Token:  func(context.Context) (string, error) { return token, nil },
	}
	if mode == sessionRestore {
		c.mgr.Restore(session)
		return nil
	}

	outcome, err := c.mgr.SignIn(ctx, session)
	c.signIn = outcome
	switch {
	case err == nil:
		return nil
	case mode == sessionSignInLater && c.mgr.SignedIn():
		c.log.Warn("sign-in reconcile deferred", logger.Error(err))
		fmt.Fprintf(os.Stderr, "%s sign in: %v (will retry)\n", noticeIcon(linksync.KindError), err)
		return nil
	default:
		return fmt.Errorf("sign in: %w", err)
	}
}

// Close releases the manager subscription and the local cache.
func (c *client) Close() error {
	c.mgr.Close()
	if err := c.cache.Close(); err != nil {
		return fmt.Errorf("close local cache: %w", err)
	}
	_ = c.log.Sync()
	return nil
}

func loadDefaults(path string) (*seed.Set, error) {
	if path == "" {
		return seed.MustEmbedded(), nil
	}
	set, err := seed.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load defaults %s: %w", path, err)
	}
	return set, nil
}

func noticeIcon(kind linksync.Kind) string {
	switch kind {
	case linksync.KindSuccess:
		return "✅"
	case linksync.KindError:
		return "❌"
	default:
		return "ℹ️"
	}
}
