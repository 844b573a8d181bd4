package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0" ./cmd/workflowd/
var version = "dev"

// exitError carries a process exit code out of a RunE.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitf(code int, format string, args ...any) *exitError {
	return &exitError{code: code, msg: fmt.Sprintf(format, args...)}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "workflowd",
		Short:        "Tenant workflow engine for business behaviors",
		Long:         "workflowd runs tenant-configured workflows of business behaviors in production or as side-effect-free dry runs.",
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate("workflowd version {{.Version}}\n")
	root.PersistentFlags().String("config", "", "Path to config file (default: ./config.yaml)")

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newMigrateCmd(),
		newTenantCmd(),
		newRunCmd(),
	)
	return root
}

func configFromCmd(cmd *cobra.Command) (*Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, exitf(2, "%v", err)
	}
	return cfg, nil
}
