// Package cli implements rfpoctl, the operator tool for schema, catalog and instance repair tasks.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/database"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/observability"
)

// Opener returns a database handle for a command. The returned close func releases it.
type Opener func(cfg *config.Config) (*gorm.DB, func(), error)

// RootOptions holds global flags and the collaborators commands share.
type RootOptions struct {
	Format string // "json" | "text"

	// LoadConfig and Open are replaced in tests.
	LoadConfig func() (*config.Config, error)
	Open       Opener
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Nil fields of opts fall back to the environment
// configuration and a Postgres connection.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.Open == nil {
		opts.Open = openPostgres
	}

	cmd := &cobra.Command{
		Use:           "rfpoctl",
		Short:         "Operate the RFPO approval service",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCatalogCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	return cmd
}

func openPostgres(cfg *config.Config) (*gorm.DB, func(), error) {
	observability.InitLogger("rfpoctl", cfg.Log.Level, cfg.Log.Format)
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = database.Close(db) }, nil
}

// withDB loads configuration, opens the database and runs fn against it.
func (o *RootOptions) withDB(fn func(cfg *config.Config, db *gorm.DB) error) error {
	cfg, err := o.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, closeDB, err := o.Open(cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(cfg, db)
}

// output writes v as indented JSON or, in text mode, the line text produces.
func (o *RootOptions) output(w io.Writer, v any, text func() string) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text())
	return err
}
