package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/transport"
)

// mailer bundles the outbound mail path.
type mailer struct {
	pool       *transport.Pool
	dispatcher *email.Dispatcher
	accounts   transport.Accounts
}

func newMailer(log *slog.Logger) (*mailer, error) {
	var cfg transport.Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("mail config: %w", err)
	}
	var dispatchCfg email.Config
	if err := config.Load(&dispatchCfg); err != nil {
		return nil, fmt.Errorf("dispatcher config: %w", err)
	}

	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}

	accounts := transport.Accounts{}
	if cfg.AccountsFile != "" {
		if accounts, err = loadAccounts(cfg.AccountsFile); err != nil {
			return nil, err
		}
	}

	pool, err := transport.NewPool(dialer, cfg.MaxConnsPerSender,
		append(cfg.PoolOptions(), transport.WithPoolLogger(log))...)
	if err != nil {
		return nil, err
	}

	dispatcher, err := email.NewDispatcher(pool, append(dispatchCfg.Options(),
		email.WithDefaultSender(cfg.SenderEmail),
		email.WithDispatcherLogger(log),
	)...)
	if err != nil {
		return nil, errors.Join(err, pool.Close())
	}

	log.LogAttrs(context.Background(), slog.LevelInfo, "mail transport ready",
		logger.Component("notifyd"),
		slog.String("driver", cfg.Driver),
		slog.Int("max_per_sender", cfg.MaxConnsPerSender),
		slog.Int("accounts", len(accounts)),
	)
	return &mailer{pool: pool, dispatcher: dispatcher, accounts: accounts}, nil
}

func newDialer(cfg transport.Config) (transport.Dialer, error) {
	switch cfg.Driver {
	case mailDriverSMTP:
		d, err := transport.NewSMTPDialer(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	case mailDriverPostmark:
		var pm transport.PostmarkConfig
		if err := config.Load(&pm); err != nil {
			return nil, fmt.Errorf("postmark config: %w", err)
		}
		d, err := transport.NewPostmarkDialer(pm)
		if err != nil {
			return nil, err
		}
		return d, nil
	case mailDriverDev:
		return transport.NewDevDialer(cfg.DevOutputDir), nil
	default:
		return nil, fmt.Errorf("%w: unknown MAIL_DRIVER %q", transport.ErrInvalidConfig, cfg.Driver)
	}
}

func loadAccounts(path string) (transport.Accounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()
	return transport.LoadAccounts(f)
}
