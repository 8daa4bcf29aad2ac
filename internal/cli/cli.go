package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/config"
	"github.com/pfrederiksen/sfoweb/internal/configflow"
	"github.com/pfrederiksen/sfoweb/internal/crypto"
	"github.com/pfrederiksen/sfoweb/internal/entry"
	"github.com/pfrederiksen/sfoweb/internal/logger"
	"github.com/pfrederiksen/sfoweb/internal/notifier"
	"github.com/pfrederiksen/sfoweb/internal/scraper"
	"github.com/pfrederiksen/sfoweb/internal/storage"
	"github.com/pfrederiksen/sfoweb/internal/telegram"
)

const (
	ExitSuccess         = 0
	ExitError           = 1
	ExitNewAppointments = 2
)

// errNewAppointments makes Execute exit with ExitNewAppointments
var errNewAppointments = errors.New("new appointments found")

// app holds what the commands share. Fields are filled in by the root
// command's pre-run hook and by openStore.
type app struct {
	v       *viper.Viper
	cfg     config.Config
	log     *zap.Logger
	verbose bool

	// newFetcher overrides the scraper, for tests
	newFetcher func(entry.Data) configflow.Fetcher

	db        *entry.DB
	store     *entry.Store
	snapshots *storage.Storage
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{v: config.NewViper()})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sfoweb",
		Short: "Track appointments from the SFOWeb parent portal",
		Long: `A CLI tool that logs in to the SFOWeb parent portal, reads the
appointment list and keeps polling it. Accounts are added with "setup" and
stored as config entries; passwords are encrypted or kept in the OS keyring.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.init,
		PersistentPostRunE: func(*cobra.Command, []string) error { return a.close() },
	}

	flags := cmd.PersistentFlags()
	flags.String("data-dir", "", "Data directory for entries and snapshots (default ~/.local/share/sfoweb)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("secret-store", "", "Password storage: encrypted or keyring")
	flags.BoolVar(&a.verbose, "verbose", false, "Enable verbose logging")

	_ = a.v.BindPFlag(config.KeyDataDir, flags.Lookup("data-dir"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeySecretStore, flags.Lookup("secret-store"))

	cmd.AddCommand(
		newSetupCmd(a),
		newEntriesCmd(a),
		newAppointmentsCmd(a),
		newRunCmd(a),
	)

	return cmd
}

// init loads the configuration and builds the logger
func (a *app) init(*cobra.Command, []string) error {
	cfg, err := config.NewConfig(a.v)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
		cfg.LogFormat = string(logger.FormatConsole)
	}
	a.cfg = cfg

	if a.log == nil {
		log, err := logger.New(logger.Options{
			Level:  cfg.LogLevel,
			Format: logger.Format(cfg.LogFormat),
		})
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		a.log = log
	}

	return nil
}

// openStore opens the entry database and the snapshot storage
func (a *app) openStore() error {
	if a.store != nil {
		return nil
	}

	snapshots, err := storage.New(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	secrets, err := a.secrets()
	if err != nil {
		return err
	}

	path := filepath.Join(snapshots.Dir(), "entries.db")
	db, err := entry.OpenDB(path)
	if err != nil {
		return fmt.Errorf("opening entry database: %w", err)
	}

	a.log.Debug("opened entry database", zap.String("path", path), zap.String("secret_store", a.cfg.SecretStore))

	a.db = db
	a.store = entry.NewStore(db, secrets)
	a.snapshots = snapshots
	return nil
}

func (a *app) secrets() (entry.SecretStore, error) {
	if a.cfg.SecretStore == config.SecretStoreKeyring {
		return entry.NewKeyringSecrets(configflow.Domain), nil
	}

	enc, err := crypto.NewEncryptor(a.cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	return entry.NewEncryptedSecrets(enc), nil
}

func (a *app) close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db, a.store = nil, nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

// fetcher builds the appointment fetcher for one account
func (a *app) fetcher(data entry.Data) configflow.Fetcher {
	if a.newFetcher != nil {
		return a.newFetcher(data)
	}
	return a.scraper(data)
}

func (a *app) scraper(data entry.Data) *scraper.Scraper {
	return scraper.New(data.Username, data.Password,
		scraper.WithLoginURL(a.cfg.LoginURL),
		scraper.WithAppointmentsURL(a.cfg.AppointmentsURL),
		scraper.WithTimeout(a.cfg.HTTPTimeout),
		scraper.WithWhatFilter(a.cfg.WhatFilter),
		scraper.WithLogger(a.log),
	)
}

func (a *app) credentialFetcher(creds configflow.Credentials) configflow.Fetcher {
	return a.fetcher(entry.Data{Username: creds.Username, Password: creds.Password})
}

// notifier returns the notifiers configured for new appointments
func (a *app) notifier(extra ...notifier.Notifier) (notifier.Notifier, error) {
	n := notifier.Multi{notifier.NewLogNotifier(a.log)}
	if a.cfg.WebhookURL != "" {
		wh, err := notifier.NewWebhookNotifier(a.cfg.WebhookURL, nil)
		if err != nil {
			return nil, err
		}
		n = append(n, wh)
	}
	if a.cfg.TelegramBotToken != "" {
		client, err := telegram.NewClient(a.cfg.TelegramBotToken, a.cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		n = append(n, telegram.NewNotifier(client))
	}
	return append(n, extra...), nil
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().ExecuteContext(context.Background())
	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.Is(err, errNewAppointments):
		os.Exit(ExitNewAppointments)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
