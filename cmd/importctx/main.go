package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/config"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "importctx",
		Short: "Resolve the study, center, equipment, subject, examination and converter of a scan import",
		Long: `importctx binds an incoming scan to the organizational context it will be
imported into. It reads the scanner fingerprint from the DICOM header, lists
the candidates of every level from a registry and fills the levels that the
fingerprint leaves no doubt about.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML or TOML configuration file")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	root.AddCommand(newFingerprintCmd(), newResolveCmd(g))
	return root
}

// load reads the dotenv file, then the configuration.
func (g *globalFlags) load() (config.Config, error) {
	if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, eris.Wrapf(err, "load %s", g.envFile)
	}
	return config.Load(g.configPath)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	zc.Encoding = "console"
	zc.DisableStacktrace = true
	return zc.Build()
}
