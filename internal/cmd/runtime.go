package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/config"
	"github.com/garyjia/pto-workflow/internal/container"
	"github.com/garyjia/pto-workflow/pkg/utils"
)

// loadRuntime loads the configuration and builds the logger. Command output
// goes to stdout, so logs written there are moved to stderr unless serving.
func loadRuntime(serving bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.ToLoggerConfig()
	if !serving && (logCfg.OutputPath == "" || logCfg.OutputPath == "stdout") {
		logCfg.OutputPath = "stderr"
	}
	logger, err := utils.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// withContainer starts a container, runs fn and closes it. Close waits for
// intent consumers, so notifications and sheets are complete on return.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *container.Container) error) error {
	cfg, logger, err := loadRuntime(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, c)
	if err := c.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
