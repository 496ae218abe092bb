package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/capture-queue/internal/config"
	"github.com/and161185/capture-queue/internal/service"
	"github.com/and161185/capture-queue/internal/storage"
)

// app holds what PersistentPreRunE opens for a subcommand.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	keys    storage.Keys
	capture *service.Capture
	close   func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "cq",
		Short:         "Offline capture queue",
		Long:          "cq buffers clock-in/clock-out capture events encrypted at rest and drains them when connectivity returns.",
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd)
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newInitCmd(a),
		newEnqueueCmd(a),
		newPeekCmd(a),
		newDrainCmd(a),
		newFlushCmd(a),
		newStatusCmd(a),
	)
	for _, c := range root.Commands() {
		a.releaseAfter(c)
	}
	return root
}

// releaseAfter closes what open acquired once c has run, whether or not it failed.
func (a *app) releaseAfter(c *cobra.Command) {
	run := c.RunE
	if run == nil {
		return
	}
	c.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() { err = errors.Join(err, a.shutdown()) }()
		return run(cmd, args)
	}
}

func (a *app) open(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	kv, closeFn, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	a.cfg, a.log, a.close = cfg, log, closeFn
	a.keys = storage.DefaultKeys().WithNamespace(cfg.Storage.Namespace)
	a.capture = service.NewCapture(kv, a.keys, nil, log)
	log.Debug("storage opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("namespace", cfg.Storage.Namespace),
	)
	return nil
}

func (a *app) shutdown() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	closeFn := a.close
	a.close = nil
	if closeFn != nil {
		return closeFn()
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func causeString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
