package launcher

import (
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-token-layer/flags"
	"github.com/rony4d/go-token-layer/layercore"
)

var app = flags.NewApp()

func init() {
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.ChainFlags()...)
	app.Flags = append(app.Flags, flags.FeeFlags()...)
	app.Action = run
}

// Launch parses arguments and starts the node.
func Launch(args []string) error {
	return app.Run(args)
}

func run(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}

	logger, err := makeLogger(cfg.Node.Logging)
	if err != nil {
		return err
	}

	coordinator := layercore.NewCoordinator(cfg.Rules, logger)
	coordinator.SetOutcomeRetention(cfg.Preset.OutcomeRetention)
	_, _, connected := coordinator.Head()

	logger.WithFields(logrus.Fields{
		"network":   cfg.Rules.Name,
		"networkId": cfg.Rules.NetworkID,
		"preset":    cfg.Preset.Name,
		"datadir":   cfg.Node.DataDir,
		"chain":     cfg.Chain.URL,
		"synced":    connected,
	}).Info("token layer node initialized")

	// TODO: attach the host-chain follower that feeds confirmed blocks
	// into the coordinator; until then the node only serves an empty
	// state.
	return nil
}

// makeLogger builds the process logger from the logging config: level and
// format from flags, plus an optional Sentry hook forwarding error-level
// entries.
func makeLogger(cfg LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	levels := []logrus.Level{
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
		logrus.DebugLevel,
		logrus.TraceLevel,
	}
	verbosity := cfg.Verbosity
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity >= len(levels) {
		verbosity = len(levels) - 1
	}
	logger.SetLevel(levels[verbosity])

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{ForceColors: cfg.Color})
	}

	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, err
		}
		logger.AddHook(hook)
	}
	return logger, nil
}
