package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/backend"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/client"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("NIA")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "nia",
		Short: "Network impact analyzer",
		Long: `nia - Network Impact Analyzer

Classify which subscriber circuits lose service when a node or an
exchange fails.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("nia %s (commit %s, built %s)\n", Version, Commit, BuildTime))
	root.PersistentFlags().String("api-url", "http://127.0.0.1:8000", "nia-d base URL (env NIA_API_URL)")
	c.v.BindPFlag("api-url", root.PersistentFlags().Lookup("api-url"))

	root.AddCommand(
		c.analyzeCmd(),
		c.importCmd(),
		c.drillCmd(),
		c.mcpCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) client() *client.Client {
	return client.NewClient(strings.TrimRight(c.v.GetString("api-url"), "/"))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nia %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildTime)
		},
	}
}

// addBackendFlags registers the flags that locate a snapshot source or
// table store, mirroring nia-d.
func addBackendFlags(fs *pflag.FlagSet, cfg *backend.Config) {
	fs.StringVar(&cfg.Kind, "source", backend.KindSQLite, "backend: "+strings.Join(backend.Kinds, "|"))
	fs.StringVar(&cfg.DataDir, "data-dir", ".", "directory holding the CSV exports when source=dir")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", "", "bucket holding the CSV exports when source=s3")
	fs.StringVar(&cfg.S3Prefix, "s3-prefix", "", "key prefix of the CSV exports when source=s3")
	fs.StringVar(&cfg.DBPath, "db-path", "nia.db", "SQLite database when source=sqlite")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "127.0.0.1:6379", "Redis address when source=redis")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", "", "PostgreSQL connection string when source=postgres")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
