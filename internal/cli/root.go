// Package cli implements the postbookctl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/louisbranch/postbook/internal/platform/config"
	"github.com/louisbranch/postbook/internal/platform/kv/backend"
	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// envConfig supplies flag defaults from POSTBOOK_* variables.
type envConfig struct {
	KV           backend.Config
	SnapshotKey  string `env:"POSTBOOK_SNAPSHOT_KEY" envDefault:"sqlite-buffer"`
	ServerDBPath string `env:"POSTBOOK_SERVER_DB_PATH" envDefault:"data/server.db"`
}

type globalOptions struct {
	JSON         bool
	KV           backend.Config
	SnapshotKey  string
	ServerDBPath string
}

type commandDeps struct {
	out     io.Writer
	build   BuildInfo
	globals *globalOptions
}

// NewRootCommand builds the postbookctl command tree writing to out.
func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	var defaults envConfig
	envErr := config.ParseEnv(&defaults)

	globals := &globalOptions{
		KV:           defaults.KV,
		SnapshotKey:  defaults.SnapshotKey,
		ServerDBPath: defaults.ServerDBPath,
	}
	deps := commandDeps{out: out, build: build, globals: globals}

	cmd := &cobra.Command{
		Use:           "postbookctl",
		Short:         "Inspect and seed Postbook storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if envErr != nil {
				return usageErrorf("%v", envErr)
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON")
	flags.StringVar(&globals.KV.Backend, "kv-backend", globals.KV.Backend, "Snapshot store backend (bbolt, memory, postgres)")
	flags.StringVar(&globals.KV.Path, "kv-path", globals.KV.Path, "bbolt file holding snapshots")
	flags.StringVar(&globals.KV.PostgresDSN, "kv-postgres-dsn", globals.KV.PostgresDSN, "Postgres DSN for the postgres backend")
	flags.StringVar(&globals.SnapshotKey, "snapshot-key", globals.SnapshotKey, "Key holding the local snapshot")
	flags.StringVar(&globals.ServerDBPath, "server-db", globals.ServerDBPath, "SQLite file backing server mode")

	cmd.AddCommand(newVersionCommand(deps))
	cmd.AddCommand(newSnapshotCommand(deps))
	cmd.AddCommand(newSeedCommand(deps))
	return cmd
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newVersionCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print build version information",
		Example: "  postbookctl version\n  postbookctl --json version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("version does not accept positional arguments")
			}
			if deps.globals.JSON {
				return mapCommandError(printJSON(deps.out, deps.build))
			}
			_, err := fmt.Fprintf(
				deps.out,
				"version=%s commit=%s build_time=%s\n",
				deps.build.Version,
				deps.build.Commit,
				deps.build.BuildTime,
			)
			return mapCommandError(err)
		},
	}
}
