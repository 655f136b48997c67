package cmd

import (
	stderrors "errors"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/bookfinder/internal/cache"
	"github.com/lepinkainen/bookfinder/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// CLI represents the complete command structure for the bookfinder application
type CLI struct {
	// Global flags
	LogLevel string `help:"Log level" enum:"debug,info,warn,error" default:"info"`
	Config   string `help:"Path to config file (defaults to ./config.yaml)" type:"path"`

	// Storage flags
	CatalogDB   string `help:"Path to catalog SQLite database file"`
	UploadDir   string `help:"Directory for uploaded e-books"`
	CacheDBFile string `help:"Path to cache SQLite database file"`

	Serve   ServeCmd   `cmd:"" help:"Serve the JSON API"`
	Search  SearchCmd  `cmd:"" help:"Search the catalog and every external source"`
	Catalog CatalogCmd `cmd:"" help:"Manage the local catalog"`
	Review  ReviewCmd  `cmd:"" help:"Manage book reviews"`
	Cache   CacheCmd   `cmd:"" help:"Manage the response cache"`
}

// CacheCmd groups the cache subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Remove cached search responses"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(slog.LevelInfo)

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bookfinder"),
		kong.Description("Catalog e-books and search them alongside Google Books, Open Library, Gutendex and NYT."),
		kong.UsageOnError(),
	)

	initLogging(parseLevel(cli.LogLevel))
	if err := initConfig(cli.Config); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}

	// Flags override config values
	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig(configFile string) error {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	viper.SetDefault("JSONOutputDir", "")

	// Enable environment variable support: BOOKFINDER_SEARCH_TIMEOUT -> search.timeout
	viper.SetEnvPrefix("bookfinder")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Bind the conventional API key variables to config keys
	if err := viper.BindEnv("googlebooks.api_key", "GOOGLE_BOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}
	if err := viper.BindEnv("nyt.api_key", "NYT_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return err
		}
		slog.Debug("Config file not found, using defaults")
	}

	// Initialize global config
	config.InitConfig()
	return nil
}

func updateGlobalConfig(cli *CLI) {
	if cli.CatalogDB != "" {
		viper.Set("catalog.dbfile", cli.CatalogDB)
		config.CatalogDBFile = cli.CatalogDB
	}
	if cli.UploadDir != "" {
		viper.Set("upload.dir", cli.UploadDir)
		config.UploadDir = cli.UploadDir
	}
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func initLogging(level slog.Level) {
	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
