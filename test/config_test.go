package test

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-token-layer/cmd/tokend/launcher"
	"github.com/rony4d/go-token-layer/flags"
	"github.com/rony4d/go-token-layer/tokenlayer"
)

// helper to run MakeAllConfigs with a synthetic CLI context.

func runConfigFromArgs(t *testing.T, args []string) launcher.Config {

	t.Helper()

	app := cli.NewApp()

	app.HideHelp = true
	app.HideVersion = true

	// Register the same flag sets the launcher registers.

	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.ChainFlags()...)
	app.Flags = append(app.Flags, flags.FeeFlags()...)

	var got launcher.Config

	app.Action = func(c *cli.Context) error {
		cfg, err := launcher.MakeAllConfigs(c)
		if err != nil {
			return err
		}
		got = cfg
		return nil
	}

	if err := app.Run(append([]string{"tokend"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return got
}

// runConfigExpectError runs MakeAllConfigs and returns the error it
// produced, failing the test when no error surfaced.
func runConfigExpectError(t *testing.T, args []string) error {

	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.ChainFlags()...)
	app.Flags = append(app.Flags, flags.FeeFlags()...)

	var gotErr error
	app.Action = func(c *cli.Context) error {
		_, gotErr = launcher.MakeAllConfigs(c)
		return nil
	}
	if err := app.Run(append([]string{"tokend"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	if gotErr == nil {
		t.Fatal("MakeAllConfigs succeeded, want an error")
	}
	return gotErr
}

// TestMakeAllConfigs_flagOverrides verifies that every command-line flag
// declared by the launcher correctly overrides the corresponding field
// in the aggregated Config struct. Each sub-test feeds custom CLI
// arguments into a synthetic app, invokes launcher.MakeAllConfigs, and
// checks the bits of the resulting struct that should have changed.
func TestMakeAllConfigs_flagOverrides(t *testing.T) {

	datadir, err := ioutil.TempDir("", "tokend-test")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(datadir)

	tests := []struct {
		name string                                  // descriptive name for the scenario
		args []string                                // CLI arguments to feed into MakeAllConfigs
		want func(t *testing.T, cfg launcher.Config) // assertion helper examining the final config
	}{
		{
			name: "datadir override",
			args: []string{"--datadir", datadir},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Node.DataDir != datadir {
					t.Fatalf("DataDir = %q, want %q", cfg.Node.DataDir, datadir)
				}
			},
		},
		{
			name: "network selects rules",
			args: []string{"--datadir", datadir, "--network", "fake"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Rules.NetworkID != tokenlayer.FakeNetworkID {
					t.Fatalf("NetworkID = %#x, want %#x", cfg.Rules.NetworkID, tokenlayer.FakeNetworkID)
				}
				if cfg.Rules.Name != "fake" {
					t.Fatalf("Rules.Name = %q, want 'fake'", cfg.Rules.Name)
				}
			},
		},
		{
			name: "defaults without overrides",
			args: []string{"--datadir", datadir},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Rules.NetworkID != tokenlayer.MainNetworkID {
					t.Fatalf("default NetworkID = %#x, want mainnet", cfg.Rules.NetworkID)
				}
				if cfg.Node.RPC.HTTPEnabled {
					t.Fatal("HTTP should be disabled by default")
				}
				if cfg.Node.RPC.HTTPPort != 18545 {
					t.Fatalf("HTTPPort = %d, want 18545", cfg.Node.RPC.HTTPPort)
				}
				if cfg.Preset.Name != "default" {
					t.Fatalf("Preset.Name = %q, want 'default'", cfg.Preset.Name)
				}
			},
		},
		{
			name: "logging flags",
			args: []string{"--datadir", datadir, "--log.format", "json", "--log.verbosity", "5", "--log.color"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Node.Logging.Format != "json" {
					t.Fatalf("Logging.Format = %q, want 'json'", cfg.Node.Logging.Format)
				}
				if cfg.Node.Logging.Verbosity != 5 {
					t.Fatalf("Logging.Verbosity = %d, want 5", cfg.Node.Logging.Verbosity)
				}
				if !cfg.Node.Logging.Color {
					t.Fatal("Logging.Color should be enabled")
				}
			},
		},
		{
			name: "http flags",
			args: []string{"--datadir", datadir, "--http", "--http.addr", "0.0.0.0", "--http.port", "9001", "--rpc.timeout", "45s"},
			want: func(t *testing.T, cfg launcher.Config) {
				if !cfg.Node.RPC.HTTPEnabled {
					t.Fatal("HTTP should be enabled")
				}
				if cfg.Node.RPC.HTTPAddr != "0.0.0.0" {
					t.Fatalf("HTTPAddr = %q, want '0.0.0.0'", cfg.Node.RPC.HTTPAddr)
				}
				if cfg.Node.RPC.HTTPPort != 9001 {
					t.Fatalf("HTTPPort = %d, want 9001", cfg.Node.RPC.HTTPPort)
				}
				if cfg.Node.RPC.Timeout != 45*time.Second {
					t.Fatalf("RPC.Timeout = %v, want 45s", cfg.Node.RPC.Timeout)
				}
			},
		},
		{
			name: "chain follower flags",
			args: []string{"--datadir", datadir, "--chain.url", "http://10.0.0.5:8332", "--chain.poll-interval", "30s", "--chain.confirmations", "6"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Chain.URL != "http://10.0.0.5:8332" {
					t.Fatalf("Chain.URL = %q, want the override", cfg.Chain.URL)
				}
				if cfg.Chain.PollInterval != (30 * time.Second).String() {
					t.Fatalf("Chain.PollInterval = %q, want '30s'", cfg.Chain.PollInterval)
				}
				if cfg.Chain.Confirmations != 6 {
					t.Fatalf("Chain.Confirmations = %d, want 6", cfg.Chain.Confirmations)
				}
			},
		},
		{
			name: "fee policy flags",
			args: []string{"--datadir", datadir, "--fee.rate", "5000", "--fee.dust", "1000"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Rules.Fee.RatePerKB != 5000 {
					t.Fatalf("Fee.RatePerKB = %d, want 5000", cfg.Rules.Fee.RatePerKB)
				}
				if cfg.Rules.Fee.DustThreshold != 1000 {
					t.Fatalf("Fee.DustThreshold = %d, want 1000", cfg.Rules.Fee.DustThreshold)
				}
			},
		},
		{
			name: "preset selection",
			args: []string{"--datadir", datadir, "--preset", "lite"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Preset.Name != "lite" {
					t.Fatalf("Preset.Name = %q, want 'lite'", cfg.Preset.Name)
				}
				if cfg.Preset.CacheMB != 256 {
					t.Fatalf("Preset.CacheMB = %d, want 256", cfg.Preset.CacheMB)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := runConfigFromArgs(t, tt.args)
			tt.want(t, cfg)
		})
	}
}

// TestMakeAllConfigs_rejectsInvalidInputs verifies that bad flag values
// produce errors instead of silently falling back to defaults.
func TestMakeAllConfigs_rejectsInvalidInputs(t *testing.T) {

	datadir, err := ioutil.TempDir("", "tokend-test")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(datadir)

	t.Run("unknown network", func(t *testing.T) {
		runConfigExpectError(t, []string{"--datadir", datadir, "--network", "ropsten"})
	})

	t.Run("unknown preset", func(t *testing.T) {
		runConfigExpectError(t, []string{"--datadir", datadir, "--preset", "turbo"})
	})
}
