package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/studydeck/internal/profile"
	"github.com/hrygo/studydeck/internal/version"
	"github.com/hrygo/studydeck/server"
	"github.com/hrygo/studydeck/server/auth"
	"github.com/hrygo/studydeck/store"
	"github.com/hrygo/studydeck/store/cache"
	"github.com/hrygo/studydeck/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "studydeck",
		Short: `A spaced-repetition flashcard scheduling service.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(viper.GetString("mode"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			storeInstance, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer storeInstance.Close()
			schemaVersion, err := storeInstance.GetCurrentSchemaVersion()
			if err != nil {
				return err
			}
			slog.Info("schema is up to date", slog.String("version", schemaVersion))
			return nil
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a learner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			if instanceProfile.Secret == "" {
				return fmt.Errorf("a secret is required to sign tokens")
			}
			storeInstance, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer storeInstance.Close()

			username := viper.GetString("username")
			user, err := storeInstance.GetUser(cmd.Context(), &store.FindUser{Username: &username})
			if store.IsNotFound(err) {
				user, err = storeInstance.CreateUser(cmd.Context(), &store.User{Username: username, Timezone: instanceProfile.Timezone})
			}
			if err != nil {
				return err
			}
			token, err := auth.GenerateAccessToken(user.Username, user.ID, time.Now().Add(viper.GetDuration("ttl")), []byte(instanceProfile.Secret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("timezone", "UTC")
	viper.SetDefault("reward-policy", "per_review")

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres or mysql)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("timezone", "UTC", "IANA zone for learners without one")
	rootCmd.PersistentFlags().String("secret", "", "secret used to sign access tokens")
	rootCmd.PersistentFlags().String("reward-policy", "per_review", `which reviews earn rewards, "per_review" or "first_of_day"`)
	tokenCmd.Flags().String("username", "learner", "learner to mint the token for, created when missing")
	tokenCmd.Flags().Duration("ttl", auth.AccessTokenDuration, "token lifetime")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if err := viper.BindPFlags(tokenCmd.Flags()); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("studydeck")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(migrateCmd, tokenCmd)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:         viper.GetString("mode"),
		Addr:         viper.GetString("addr"),
		Port:         viper.GetInt("port"),
		Data:         viper.GetString("data"),
		Driver:       viper.GetString("driver"),
		DSN:          viper.GetString("dsn"),
		Timezone:     viper.GetString("timezone"),
		Secret:       viper.GetString("secret"),
		RewardPolicy: viper.GetString("reward-policy"),
		Version:      version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

// openStore connects the database, attaches the optional Redis L2 cache and migrates.
func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}

	var opts []store.Option
	if instanceProfile.IsRedisEnabled() {
		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Addr = instanceProfile.RedisAddr
		redisConfig.Password = instanceProfile.RedisPassword
		redisConfig.DB = instanceProfile.RedisDB
		redisCache, err := cache.NewRedisCache(ctx, redisConfig)
		if err != nil {
			// The L1 cache alone is enough for a single instance.
			slog.Warn("redis unavailable, using in-memory cache only", slog.String("error", err.Error()))
		} else {
			opts = append(opts, store.WithL2Cache(redisCache))
		}
	}

	storeInstance := store.New(dbDriver, instanceProfile, opts...)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, err
	}
	return storeInstance, nil
}

func runServe(ctx context.Context) error {
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}
	if instanceProfile.Secret == "" {
		slog.Warn("no secret configured, every access token will be rejected")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}
	s, err := server.NewServer(ctx, instanceProfile, storeInstance)
	if err != nil {
		_ = storeInstance.Close()
		return err
	}
	if err := s.Start(ctx); err != nil {
		_ = storeInstance.Close()
		return err
	}

	<-ctx.Done()
	s.Shutdown(context.WithoutCancel(ctx))
	return nil
}

func setupLogger(mode string) {
	var handler slog.Handler
	if mode == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
