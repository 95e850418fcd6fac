package main

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/MarcoPoloResearchLab/babytracker/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

type cli struct {
	viper   *viper.Viper
	cfgFile string
	envFile string
	out     io.Writer
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	app := &cli{viper: config.NewViper(), out: out}

	rootCmd := &cobra.Command{
		Use:           "babytracker",
		Short:         "Baby activity tracker backend and command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig(cmd)
		},
	}
	rootCmd.SetOut(out)

	app.setupFlags(rootCmd)
	rootCmd.AddCommand(
		app.newServeCommand(),
		app.newTokenCommand(),
		app.newRecordCommand(),
		app.newListCommand(),
		app.newDeleteCommand(),
		app.newSummaryCommand(),
		app.newOwnersCommand(),
	)
	return rootCmd
}

func (a *cli) setupFlags(cmd *cobra.Command) {
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Path to configuration file")
	flags.StringVar(&a.envFile, "env-file", defaultEnvFile, "Path to a dotenv file loaded before configuration")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("storage-driver", defaults.GetString("storage.driver"), "Record storage (memory, file, sqlite, postgres)")
	flags.String("storage-dir", defaults.GetString("storage.file_dir"), "Directory for the file storage driver")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("database-dsn", defaults.GetString("database.dsn"), "PostgreSQL connection string")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	flags.String("signing-secret", "", "Token signing secret; enables authentication")
	flags.String("owner", defaults.GetString("owners.default"), "Owner used when a request or command names none")
	flags.String("timezone", defaults.GetString("tracker.timezone"), "IANA time zone deciding what today is")

	a.bindFlag(cmd, "http.address", "http-address")
	a.bindFlag(cmd, "storage.driver", "storage-driver")
	a.bindFlag(cmd, "storage.file_dir", "storage-dir")
	a.bindFlag(cmd, "database.path", "database-path")
	a.bindFlag(cmd, "database.dsn", "database-dsn")
	a.bindFlag(cmd, "log.level", "log-level")
	a.bindFlag(cmd, "log.format", "log-format")
	a.bindFlag(cmd, "auth.signing_secret", "signing-secret")
	a.bindFlag(cmd, "owners.default", "owner")
	a.bindFlag(cmd, "tracker.timezone", "timezone")
}

func (a *cli) bindFlag(cmd *cobra.Command, key, flag string) {
	if err := a.viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// initConfig loads the dotenv file, then the optional config file. A missing
// default dotenv file is ignored; an explicitly named one must exist.
func (a *cli) initConfig(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			explicit := cmd.Flags().Changed("env-file")
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}

	if a.cfgFile == "" {
		return nil
	}
	a.viper.SetConfigFile(a.cfgFile)
	return a.viper.ReadInConfig()
}
