package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/capture-queue/internal/model"
	"github.com/and161185/capture-queue/internal/queue"
)

type enqueueOutput struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Cause string `json:"cause,omitempty"`
}

type readOutput struct {
	Path   string               `json:"path"`
	Cause  string               `json:"cause,omitempty"`
	Events []model.CaptureEvent `json:"events"`
}

func toReadOutput(r queue.ReadResult) readOutput {
	return readOutput{Path: r.Path.String(), Cause: causeString(r.Cause), Events: r.Events}
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Provision the device secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sec := a.capture.InitDeviceSecret(cmd.Context())
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"slot":     a.keys.Secret,
				"fallback": sec.IsFallback(),
			})
		},
	}
}

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		f     eventFlags
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a capture event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := f.build(cmd.Flags(), cmd.InOrStdin(), time.Now())
			if err != nil {
				return err
			}
			var res queue.EnqueueResult
			if plain {
				res = a.capture.Enqueue(cmd.Context(), ev)
			} else {
				res = a.capture.EnqueueSecure(cmd.Context(), ev)
			}
			if err := printJSON(cmd.OutOrStdout(), enqueueOutput{
				ID:    ev.ID.String(),
				Path:  res.Path.String(),
				Cause: causeString(res.Cause),
			}); err != nil {
				return err
			}
			if !res.Stored() {
				return fmt.Errorf("event %s was not stored", ev.ID)
			}
			return nil
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&plain, "plain", false, "use the unencrypted queue")
	return cmd
}

func newPeekCmd(a *app) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Print queued events without removing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var res queue.ReadResult
			if plain {
				res = a.capture.PeekAll(cmd.Context())
			} else {
				res = a.capture.PeekAllSecure(cmd.Context())
			}
			return printJSON(cmd.OutOrStdout(), toReadOutput(res))
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "read the unencrypted queue")
	return cmd
}

func newDrainCmd(a *app) *cobra.Command {
	var plain, all bool
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Print queued events and remove them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			switch {
			case all:
				d := a.capture.DrainEverything(ctx)
				return printJSON(cmd.OutOrStdout(), []readOutput{toReadOutput(d.Secure), toReadOutput(d.Plain)})
			case plain:
				return printJSON(cmd.OutOrStdout(), toReadOutput(a.capture.DrainAll(ctx)))
			default:
				return printJSON(cmd.OutOrStdout(), toReadOutput(a.capture.DrainAllSecure(ctx)))
			}
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "drain the unencrypted queue")
	cmd.Flags().BoolVar(&all, "all", false, "drain the encrypted queue, then the unencrypted one")
	cmd.MarkFlagsMutuallyExclusive("plain", "all")
	return cmd
}

func newFlushCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Drain both queues into a JSON-lines file",
		Long:  "flush drains both queues and writes every event as one JSON line. Events after a write failure are queued again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if out != "-" {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			rep, err := a.capture.Flush(cmd.Context(), newJSONLinesSink(w))
			if perr := printJSON(cmd.ErrOrStderr(), rep); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := a.capture.Status(cmd.Context())
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"backend":            a.cfg.Storage.Backend,
				"secure":             st.Secure,
				"plain":              st.Plain,
				"secure_readable":    st.SecureReadable,
				"secret_provisioned": st.SecretProvisioned,
				"fallback_secret":    st.FallbackSecret,
				"cause":              causeString(st.Cause),
			})
		},
	}
}
