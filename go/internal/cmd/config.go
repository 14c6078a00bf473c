package main

import (
	"fmt"
	"strings"

	"github.com/mcdev12/werewolf/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// options carries the resolved configuration to every subcommand.
type options struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	v := viper.New()
	v.SetEnvPrefix("WEREWOLF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "werewolf",
		Short:   "Terminal client for the werewolf social deduction game.",
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Flags())
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	def := config.Default()
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (env: WEREWOLF_CONFIG)")
	fs.String("base-url", def.BaseURL, "game server base URL (env: WEREWOLF_BASE_URL)")
	fs.Duration("poll-interval", def.PollInterval, "time between state polls (env: WEREWOLF_POLL_INTERVAL)")
	fs.Duration("request-timeout", def.RequestTimeout, "timeout for each server request (env: WEREWOLF_REQUEST_TIMEOUT)")
	fs.Duration("night-duration", def.NightDuration, "nominal night length, for progress display (env: WEREWOLF_NIGHT_DURATION)")
	fs.Duration("day-duration", def.DayDuration, "nominal day length, for progress display (env: WEREWOLF_DAY_DURATION)")
	fs.String("session-path", def.SessionPath, "path to the local session database (env: WEREWOLF_SESSION_PATH)")
	fs.String("view-addr", def.ViewAddr, "address for the local view server, empty to disable (env: WEREWOLF_VIEW_ADDR)")
	fs.String("nats-url", def.NATSURL, "NATS server to mirror views to, empty to disable (env: WEREWOLF_NATS_URL)")
	fs.String("nats-subject-prefix", def.NATSSubjectPrefix, "subject prefix for mirrored views (env: WEREWOLF_NATS_SUBJECT_PREFIX)")
	fs.String("log-level", def.LogLevel, "log level: debug, info, warn or error (env: WEREWOLF_LOG_LEVEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(
		newCreateCmd(opts),
		newJoinCmd(opts),
		newStartCmd(opts),
		newStatusCmd(opts),
		newChatCmd(opts),
		newPlayCmd(opts),
		newHomeCmd(opts),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("werewolf v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// load resolves configuration: defaults, then the YAML file, then any flag
// set explicitly or through the environment.
func (o *options) load(fs *pflag.FlagSet) error {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var flagErr error
	fs.Visit(func(f *pflag.Flag) {
		if err := applyFlag(&cfg, fs, f.Name); err != nil && flagErr == nil {
			flagErr = err
		}
	})
	if flagErr != nil {
		return flagErr
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	o.cfg = cfg
	return nil
}

func applyFlag(cfg *config.Config, fs *pflag.FlagSet, name string) error {
	var err error
	switch name {
	case "base-url":
		cfg.BaseURL, err = fs.GetString(name)
	case "poll-interval":
		cfg.PollInterval, err = fs.GetDuration(name)
	case "request-timeout":
		cfg.RequestTimeout, err = fs.GetDuration(name)
	case "night-duration":
		cfg.NightDuration, err = fs.GetDuration(name)
	case "day-duration":
		cfg.DayDuration, err = fs.GetDuration(name)
	case "session-path":
		cfg.SessionPath, err = fs.GetString(name)
	case "view-addr":
		cfg.ViewAddr, err = fs.GetString(name)
	case "nats-url":
		cfg.NATSURL, err = fs.GetString(name)
	case "nats-subject-prefix":
		cfg.NATSSubjectPrefix, err = fs.GetString(name)
	case "log-level":
		cfg.LogLevel, err = fs.GetString(name)
	}
	return err
}
