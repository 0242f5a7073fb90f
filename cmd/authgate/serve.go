package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/user/authgate/jwtauth"
	"github.com/user/authgate/server"
	"github.com/user/authgate/userstore"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}

	cmd.Flags().String("addr", ":8080", "address to listen on")
	_ = v.BindPFlag(HTTPAddrKey, cmd.Flags().Lookup("addr"))

	cmd.Flags().String("store", "memory", "user store driver (memory, sqlite, mongo)")
	_ = v.BindPFlag(StoreDriverKey, cmd.Flags().Lookup("store"))

	cmd.Flags().String("sqlite-path", "authgate.db", "SQLite database file")
	_ = v.BindPFlag(StoreSQLitePathKey, cmd.Flags().Lookup("sqlite-path"))

	cmd.Flags().String("mongo-uri", "", "MongoDB connection URI")
	_ = v.BindPFlag(StoreMongoURIKey, cmd.Flags().Lookup("mongo-uri"))

	cmd.Flags().StringSlice("trusted-proxies", nil, "proxy addresses or CIDRs allowed to set X-Forwarded-For")
	_ = v.BindPFlag(HTTPTrustedProxiesKey, cmd.Flags().Lookup("trusted-proxies"))

	v.SetDefault(StoreMongoDatabaseKey, userstore.DefaultMongoDatabase)
	v.SetDefault(StoreMongoCollectionKey, userstore.DefaultMongoCollection)
	v.SetDefault(LoginRateKey, float64(server.DefaultLoginRate))
	v.SetDefault(LoginBurstKey, server.DefaultLoginBurst)
	v.SetDefault(BcryptCostKey, 0)

	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	logger, err := newLogger(v, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := gateConfig(v, logger)
	if err != nil {
		return fmt.Errorf("loading gate config: %w", err)
	}

	storeCfg := userstore.Config{
		Driver:          v.GetString(StoreDriverKey),
		SQLitePath:      v.GetString(StoreSQLitePathKey),
		MongoURI:        v.GetString(StoreMongoURIKey),
		MongoDatabase:   v.GetString(StoreMongoDatabaseKey),
		MongoCollection: v.GetString(StoreMongoCollectionKey),
	}
	logger.Info("opening user store", slog.String("driver", storeCfg.Driver))
	store, err := userstore.Open(cmd.Context(), storeCfg)
	if err != nil {
		return fmt.Errorf("opening user store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing user store", slog.Any("error", err))
		}
	}()

	gate, err := jwtauth.NewGate(cfg, userstore.Credentials(store))
	if err != nil {
		return fmt.Errorf("building gate: %w", err)
	}

	srv, err := server.New(server.Options{
		Store:      store,
		Hasher:     userstore.BcryptHasher{Cost: v.GetInt(BcryptCostKey)},
		Gate:       gate,
		Logger:     logger,
		LoginRate:  rate.Limit(v.GetFloat64(LoginRateKey)),
		LoginBurst: v.GetInt(LoginBurstKey),

		TrustedProxies: stringList(v, HTTPTrustedProxiesKey),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("gate configured",
		slog.Duration("token_lifetime", cfg.TokenLifetime()),
		slog.Any("public_paths", cfg.PublicPaths()),
	)
	return srv.Run(ctx, v.GetString(HTTPAddrKey))
}
