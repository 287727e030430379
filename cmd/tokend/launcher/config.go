package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-token-layer/integration"
	"github.com/rony4d/go-token-layer/tokenlayer"
)

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node   NodeConfig
	Rules  tokenlayer.Rules
	Chain  ChainConfig
	Preset integration.PresetConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
	RPC     RPCConfig
	Logging LoggingConfig
}

type RPCConfig struct {
	HTTPEnabled bool
	HTTPAddr    string
	HTTPPort    int

	// Timeout bounds the handling of a single RPC request.
	Timeout time.Duration
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string
}

// ChainConfig describes the host-chain node this instance follows.
type ChainConfig struct {
	URL           string
	PollInterval  string
	Confirmations int
}

func defaultConfig() Config {
	home := GuessHomeDir()
	return Config{
		Node: NodeConfig{
			DataDir: filepath.Join(home, ".tokend"),
			Name:    "tokend",
			RPC: RPCConfig{
				HTTPAddr: "127.0.0.1",
				HTTPPort: 18545,
				Timeout:  30 * time.Second,
			},
			Logging: LoggingConfig{
				Verbosity: 3,
				Format:    "text",
			},
		},
		Rules: tokenlayer.MainNetRules(),
		Chain: ChainConfig{
			URL:           "http://127.0.0.1:8332",
			PollInterval:  "10s",
			Confirmations: 1,
		},
		Preset: integration.DefaultPreset(),
	}
}

// MakeAllConfigs merges defaults, the selected preset, and CLI flag
// overrides into a single config struct.

func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if ctx.IsSet("preset") || ctx.GlobalIsSet("preset") {
		preset, err := integration.GetPresetByName(ctx.String("preset"))
		if err != nil {
			return Config{}, err
		}
		integration.ApplyPreset(&cfg.Preset, preset)
	}

	switch name := ctx.String("network"); name {
	case "main":
		cfg.Rules = tokenlayer.MainNetRules()
	case "test":
		cfg.Rules = tokenlayer.TestNetRules()
	case "fake":
		cfg.Rules = tokenlayer.FakeNetRules()
	default:
		return Config{}, fmt.Errorf("unknown network %q (valid: main, test, fake)", name)
	}

	applyCLIOverrides(ctx, &cfg)

	if err := ensureDir(cfg.Node.DataDir); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.String("datadir"))
	}

	if ctx.Bool("http") {
		cfg.Node.RPC.HTTPEnabled = true
	}
	if ctx.IsSet("http.addr") {
		cfg.Node.RPC.HTTPAddr = ctx.String("http.addr")
	}
	if ctx.IsSet("http.port") {
		cfg.Node.RPC.HTTPPort = ctx.Int("http.port")
	}
	if ctx.IsSet("rpc.timeout") {
		cfg.Node.RPC.Timeout = ctx.Duration("rpc.timeout")
	}

	if ctx.IsSet("log.format") {
		cfg.Node.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("log.color") {
		cfg.Node.Logging.Color = ctx.Bool("log.color")
	}
	if ctx.IsSet("log.sentry-dsn") {
		cfg.Node.Logging.SentryDSN = ctx.String("log.sentry-dsn")
	}

	if ctx.IsSet("chain.url") {
		cfg.Chain.URL = ctx.String("chain.url")
	}
	if ctx.IsSet("chain.poll-interval") {
		cfg.Chain.PollInterval = ctx.Duration("chain.poll-interval").String()
	}
	if ctx.IsSet("chain.confirmations") {
		cfg.Chain.Confirmations = ctx.Int("chain.confirmations")
	}

	if ctx.IsSet("fee.rate") {
		cfg.Rules.Fee.RatePerKB = ctx.Int64("fee.rate")
	}
	if ctx.IsSet("fee.dust") {
		cfg.Rules.Fee.DustThreshold = ctx.Int64("fee.dust")
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
