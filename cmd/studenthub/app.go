package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"studenthub/appdata"
	"studenthub/client"
	"studenthub/config"
	"studenthub/resources"
	"studenthub/session"
)

// app holds everything a command needs.
type app struct {
	cfg     config.Config
	log     *log.Logger
	out     io.Writer
	session *session.Session
	closers []func() error
	cmd     *Command

	stores *resources.Set
	data   *appdata.AppData
}

func newApp(cfg config.Config, out io.Writer, logger *log.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger, out: out}
	store, err := a.openTokenStore()
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	factory := client.NewFactory(cfg.APIURL, httpClient, logger)
	a.session = session.New(factory, store, logger)
	return a, nil
}

func (a *app) openTokenStore() (session.TokenStore, error) {
	switch a.cfg.TokenStore {
	case config.TokenStoreMemory:
		return &session.MemoryStore{}, nil
	case config.TokenStoreRedis:
		opts, err := config.RedisOptions(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rc := redis.NewClient(opts)
		a.closers = append(a.closers, rc.Close)
		return session.NewRedisStore(rc, a.cfg.Profile, 0), nil
	default:
		bs, err := session.OpenBoltStore(a.cfg.TokenFile, a.cfg.Profile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bs.Close)
		return bs, nil
	}
}

// restore signs in with the stored token, if any. A rejected token only
// produces a warning; the command then runs anonymously.
func (a *app) restore(ctx context.Context) {
	if err := a.session.Restore(ctx); err != nil {
		a.log.WithError(err).Warn("stored session is no longer valid, please log in again")
	}
	a.rebuild()
}

// rebuild recreates the stores for the session's current token.
func (a *app) rebuild() {
	a.stores = resources.NewSet(a.session.Client(), a.log)
	a.data = appdata.New(a.stores, a.session, a.log)
}

// flags returns a flag set for the running command.
func (a *app) flags() *flag.FlagSet {
	return a.cmd.NewFlagSet(a.out)
}

// requireUser fails unless someone is signed in.
func (a *app) requireUser() error {
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in, run 'studenthub login' first")
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// run dispatches args[0] to its command.
func run(ctx context.Context, reg *Registry, a *app, args []string) error {
	if len(args) < 1 {
		reg.PrintHelp(a.out)
		return errors.New("no command specified")
	}
	name := args[0]
	switch name {
	case "help", "-h", "--help":
		if len(args) > 1 {
			if cmd, ok := reg.Lookup(args[1]); ok {
				cmd.PrintUsage(a.out)
				return nil
			}
		}
		reg.PrintHelp(a.out)
		return nil
	}
	cmd, ok := reg.Lookup(name)
	if !ok {
		reg.PrintHelp(a.out)
		return fmt.Errorf("unknown command: %s", name)
	}
	a.cmd = cmd
	if cmd.Anonymous {
		a.rebuild()
	} else {
		a.restore(ctx)
	}
	return cmd.Run(ctx, a, args[1:])
}
