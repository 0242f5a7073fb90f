package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	LogLevelKey  = "log.level"
	LogFormatKey = "log.format"

	HTTPAddrKey           = "http.addr"
	HTTPTrustedProxiesKey = "http.trusted_proxies"

	JWTSecretKey      = "jwt.secret"
	JWTLifetimeKey    = "jwt.lifetime"
	JWTClockSkewKey   = "jwt.clock_skew"
	JWTPublicPathsKey = "jwt.public_paths"

	StoreDriverKey          = "store.driver"
	StoreSQLitePathKey      = "store.sqlite.path"
	StoreMongoURIKey        = "store.mongo.uri"
	StoreMongoDatabaseKey   = "store.mongo.database"
	StoreMongoCollectionKey = "store.mongo.collection"

	LoginRateKey  = "ratelimit.login_rate"
	LoginBurstKey = "ratelimit.login_burst"
	BcryptCostKey = "bcrypt.cost"
)

// newRootCmd builds the command tree on a fresh viper instance
func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "authgate",
		Short: "Bearer token gate with registration and token issuance",
		Long: `authgate serves /registration and /genToken publicly and requires
an HS256 bearer token, bound to a registered user, on every other route.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, configFile)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "",
		"Configuration file (default is ./authgate.yaml or $HOME/authgate.yaml)")

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag(LogLevelKey, root.PersistentFlags().Lookup("log-level"))

	root.PersistentFlags().String("log-format", "json", "Log format (json, text)")
	_ = v.BindPFlag(LogFormatKey, root.PersistentFlags().Lookup("log-format"))

	root.PersistentFlags().String("secret", "", "HS256 signing secret, at least 32 bytes")
	_ = v.BindPFlag(JWTSecretKey, root.PersistentFlags().Lookup("secret"))

	root.PersistentFlags().String("lifetime", "60m", "Token lifetime as a duration; a bare number means minutes")
	_ = v.BindPFlag(JWTLifetimeKey, root.PersistentFlags().Lookup("lifetime"))

	v.SetDefault(JWTClockSkewKey, "0s")
	v.SetDefault(JWTPublicPathsKey, []string{})

	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newTokenCmd(v))
	return root
}

// initConfig reads the configuration file if one is given or found
func initConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName("authgate")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFoundError) {
			return err
		}
	}
	return nil
}
