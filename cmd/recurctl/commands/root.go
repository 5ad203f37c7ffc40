package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cyp0633/librecur/format"
	"github.com/cyp0633/librecur/preset"
	"github.com/cyp0633/librecur/recurrence"
)

// EnvPrefix prefixes environment overrides, e.g. RECURCTL_TIMEZONE.
const EnvPrefix = "RECURCTL"

// app is the state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
	engine  *recurrence.Engine
}

// NewRootCmd builds the recurctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{
		v:      viper.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	root := &cobra.Command{
		Use:   "recurctl",
		Short: "Build, expand and convert recurrence rules",
		Long: `recurctl builds a recurrence rule from flags, an RRULE-style string or a
hex encoded record, then lists its occurrences or converts it to another
representation: RRULE text, a human readable phrase, iCalendar or xCal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.engine != nil {
				a.engine.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.recurctl.yaml)")
	flags.String("timezone", "Local", "time zone of dates without an offset")
	flags.String("locale", "", "YAML locale table for describe (default is English)")
	flags.Int("count", 10, "number of occurrences to list")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")

	for _, key := range []string{"timezone", "locale", "count", "log-level"} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(
		newNextCmd(a),
		newBetweenCmd(a),
		newRRuleCmd(a),
		newDescribeCmd(a),
		newEncodeCmd(a),
		newDecodeCmd(a),
		newICalCmd(a),
		newImportCmd(a),
		newXCalCmd(a),
		newMatchCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigName(".recurctl")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.v.GetString("log-level"), err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", "path", used)
	}
	return nil
}

func (a *app) location() (*time.Location, error) {
	name := a.v.GetString("timezone")
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

func (a *app) locale() (format.Locale, error) {
	path := a.v.GetString("locale")
	if path == "" {
		return format.English(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return format.Locale{}, fmt.Errorf("failed to open locale: %w", err)
	}
	defer f.Close()
	return format.LoadLocale(f)
}

// settings reads the "picker" section of the config over the defaults.
func (a *app) settings() (preset.Settings, error) {
	s := preset.DefaultSettings
	if err := a.v.UnmarshalKey("picker", &s); err != nil {
		return s, fmt.Errorf("invalid picker settings: %w", err)
	}
	if err := s.Check(); err != nil {
		return s, err
	}
	return s, nil
}

func (a *app) getEngine() *recurrence.Engine {
	if a.engine == nil {
		a.engine = recurrence.NewEngine(recurrence.WithLogger(a.logger))
	}
	return a.engine
}
