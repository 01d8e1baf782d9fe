package main

import (
	"context"
	"fmt"
	"openpka/app"
	"openpka/client/es"
	"openpka/common"
	"openpka/config"
	"openpka/infra/tracing"
	"openpka/persistence"
	"openpka/servehttp"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "openpka",
		Short:         "Academic review workflows and temporal org hierarchy service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", ".", "config file or directory containing config.yaml")
	cmd.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newSeedDefinitionsCmd(opts), newSyncHierarchyCmd(opts))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// startDatabase loads the config and connects, the caller stops the data source.
func startDatabase(opts *rootOptions) (*config.Config, *persistence.DataSourceManager, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	common.SetLogLevel(cfg.Log.Level)
	if err := common.SetLocation(cfg.Timezone); err != nil {
		return nil, nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	dbConfig, err := cfg.DatabaseConfig()
	if err != nil {
		return nil, nil, err
	}
	if dbConfig.DriverType == persistence.DriverMysql {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			return nil, nil, fmt.Errorf("prepare database: %w", err)
		}
	}
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	persistence.ActiveDataSourceManager = ds
	return cfg, ds, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ds, err := startDatabase(opts)
			if err != nil {
				return err
			}
			defer ds.Stop()

			if cfg.Database.Migrate {
				if err := app.Migrate(ds.GormDB(context.Background())); err != nil {
					return fmt.Errorf("database migration: %w", err)
				}
			}

			closer, err := tracing.InitGlobalTracer(common.GetServiceName(), cfg.Tracing.Enabled)
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}
			defer closer.Close()

			if cfg.Search.Enabled {
				if _, err := es.CreateClient(cfg.Search.URLs); err != nil {
					return fmt.Errorf("create elasticsearch client: %w", err)
				}
			}
			app.RegisterEventHandlers(cfg.Search.Enabled)
			if synced, err := app.SyncHierarchy(ds.GormDB(context.Background())); err != nil {
				logrus.Warnf("startup hierarchy sync: %v", err)
			} else if synced > 0 {
				logrus.Infof("startup hierarchy sync moved %d cached parents", synced)
			}
			if s := app.RegisterAdminToken(cfg.Admin.Token, cfg.Admin.Name); s != nil {
				logrus.Infof("bootstrap admin token registered for %s", s.Identity.Name)
			}

			return servehttp.StartHTTPServer(cfg.HTTP.Address, servehttp.BuildEngine(cfg.Search.Enabled))
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, ds, err := startDatabase(opts)
			if err != nil {
				return err
			}
			defer ds.Stop()
			if err := app.Migrate(ds.GormDB(cmd.Context())); err != nil {
				return err
			}
			logrus.Info("database schema is up to date")
			return nil
		},
	}
}

func newSeedDefinitionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-definitions <file>",
		Short: "Create workflow definitions from a yaml file and make them active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := config.LoadDefinitions(args[0])
			if err != nil {
				return err
			}
			_, ds, err := startDatabase(opts)
			if err != nil {
				return err
			}
			defer ds.Stop()
			db := ds.GormDB(cmd.Context())
			if err := app.Migrate(db); err != nil {
				return err
			}
			created, err := app.SeedDefinitions(db, defs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d workflow definitions seeded\n", len(created))
			return nil
		},
	}
}

// newSyncHierarchyCmd is meant for a daily job, it moves cached parents whose handover date passed.
func newSyncHierarchyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-hierarchy",
		Short: "Refresh cached parents of org units against today's relations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ds, err := startDatabase(opts)
			if err != nil {
				return err
			}
			defer ds.Stop()
			if cfg.Search.Enabled {
				if _, err := es.CreateClient(cfg.Search.URLs); err != nil {
					return fmt.Errorf("create elasticsearch client: %w", err)
				}
			}
			app.RegisterEventHandlers(cfg.Search.Enabled)

			synced, err := app.SyncHierarchy(ds.GormDB(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d org units synchronized\n", synced)
			return nil
		},
	}
}
