package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/louisbranch/postbook/internal/blog/storage/snapshotstore"
	"github.com/louisbranch/postbook/internal/platform/kv"
	"github.com/louisbranch/postbook/internal/platform/kv/backend"
	platformlog "github.com/louisbranch/postbook/internal/platform/log"
	"github.com/louisbranch/postbook/internal/platform/storage/snapshot"
	"github.com/spf13/cobra"
)

// snapshotStatus summarizes the stored snapshot.
type snapshotStatus struct {
	Key       string `json:"key"`
	Backend   string `json:"backend"`
	State     string `json:"state"`
	Bytes     int    `json:"bytes"`
	Posts     int    `json:"posts"`
	Comments  int    `json:"comments"`
	LoadError string `json:"load_error,omitempty"`
}

func newSnapshotCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect, export, and import the local snapshot",
	}
	cmd.AddCommand(newSnapshotStatusCommand(deps))
	cmd.AddCommand(newSnapshotExportCommand(deps))
	cmd.AddCommand(newSnapshotImportCommand(deps))
	return cmd
}

// withKV opens the configured store for the duration of fn.
func withKV(ctx context.Context, deps commandDeps, fn func(context.Context, kv.Store) error) error {
	store, closer, err := backend.Open(ctx, deps.globals.KV)
	if err != nil {
		return mapCommandError(err)
	}
	defer closer.Close()
	return fn(ctx, store)
}

func newSnapshotStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the load state and contents of the stored snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("snapshot status does not accept positional arguments")
			}
			return withKV(cmd.Context(), deps, func(ctx context.Context, store kv.Store) error {
				status, statusErr := readSnapshotStatus(ctx, deps, store)
				if err := printSnapshotStatus(deps, status); err != nil {
					return mapCommandError(err)
				}
				return mapCommandError(statusErr)
			})
		},
	}
}

func readSnapshotStatus(ctx context.Context, deps commandDeps, store kv.Store) (snapshotStatus, error) {
	status := snapshotStatus{Key: deps.globals.SnapshotKey, Backend: deps.globals.KV.Backend}

	raw, err := store.Get(ctx, deps.globals.SnapshotKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status, ctxErr
		}
		// Same outcome the web process reaches: the store is unreadable, so
		// the snapshot counts as absent.
		status.State = snapshot.StateUnavailable.String()
		status.LoadError = fmt.Sprintf("read snapshot %s: %v", deps.globals.SnapshotKey, err)
		return status, nil
	default:
		status.Bytes = len(raw)
	}

	db, err := snapshotstore.Open(ctx, store, snapshotstore.Options{
		Key:      deps.globals.SnapshotKey,
		SkipInit: true,
		Logger:   platformlog.Discard(),
	})
	if err != nil {
		if errors.Is(err, snapshot.ErrCorruptSnapshot) {
			status.State = snapshot.StateCorrupt.String()
			status.LoadError = err.Error()
		}
		return status, err
	}
	defer db.Close()

	status.State = db.State().String()
	if loadErr := db.DB().LoadErr(); loadErr != nil {
		status.LoadError = loadErr.Error()
	}
	if db.State() != snapshot.StateRestored {
		return status, nil
	}
	stats, err := db.Statistics(ctx)
	if err != nil {
		return status, fmt.Errorf("count snapshot contents: %w", err)
	}
	status.Posts = stats.Posts
	status.Comments = stats.Comments
	return status, nil
}

func printSnapshotStatus(deps commandDeps, status snapshotStatus) error {
	if status.State == "" {
		return nil
	}
	if deps.globals.JSON {
		return printJSON(deps.out, status)
	}
	_, err := fmt.Fprintf(deps.out, "key=%s backend=%s state=%s bytes=%d posts=%d comments=%d\n",
		status.Key, status.Backend, status.State, status.Bytes, status.Posts, status.Comments)
	if err == nil && status.LoadError != "" {
		_, err = fmt.Fprintf(deps.out, "load_error=%q\n", status.LoadError)
	}
	return err
}

func newSnapshotExportCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "export FILE",
		Short:   "Write the stored snapshot bytes to FILE (- for stdout)",
		Example: "  postbookctl snapshot export backup.sqlite",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("snapshot export requires exactly one FILE argument")
			}
			target := strings.TrimSpace(args[0])
			return withKV(cmd.Context(), deps, func(ctx context.Context, store kv.Store) error {
				buf, err := store.Get(ctx, deps.globals.SnapshotKey)
				if err != nil {
					return mapCommandError(fmt.Errorf("read snapshot %s: %w", deps.globals.SnapshotKey, err))
				}
				if target == "-" {
					_, err := deps.out.Write(buf)
					return mapCommandError(err)
				}
				if err := os.WriteFile(target, buf, 0o600); err != nil {
					return mapCommandError(err)
				}
				_, err = fmt.Fprintf(deps.out, "exported %d bytes to %s\n", len(buf), target)
				return mapCommandError(err)
			})
		},
	}
}

func newSnapshotImportCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "import FILE",
		Short:   "Verify FILE as a database image and store it as the snapshot (- for stdin)",
		Example: "  postbookctl snapshot import backup.sqlite",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("snapshot import requires exactly one FILE argument")
			}
			source := strings.TrimSpace(args[0])
			var (
				buf []byte
				err error
			)
			if source == "-" {
				buf, err = io.ReadAll(cmd.InOrStdin())
			} else {
				buf, err = os.ReadFile(source)
			}
			if err != nil {
				return mapCommandError(err)
			}
			if err := snapshot.Verify(cmd.Context(), buf); err != nil {
				return mapCommandError(err)
			}
			return withKV(cmd.Context(), deps, func(ctx context.Context, store kv.Store) error {
				if err := store.Put(ctx, deps.globals.SnapshotKey, buf); err != nil {
					return mapCommandError(fmt.Errorf("write snapshot %s: %w", deps.globals.SnapshotKey, err))
				}
				_, err := fmt.Fprintf(deps.out, "imported %d bytes into %s\n", len(buf), deps.globals.SnapshotKey)
				return mapCommandError(err)
			})
		},
	}
}
