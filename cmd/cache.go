package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jcdickinson/ferrisnav/internal/cas"
	"github.com/jcdickinson/ferrisnav/internal/config"
	"github.com/jcdickinson/ferrisnav/internal/daemon"
	"github.com/spf13/cobra"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clear the daemon's version resolution and parsed-crate caches",
	Long: `Clear the running daemon's in-memory caches. With --disk, also delete the
downloaded rustdoc JSON and stored sidebars; the daemon must be stopped first.`,
	Run: runClearCache,
}

var clearDisk bool

func init() {
	clearCacheCmd.Flags().BoolVar(&clearDisk, "disk", false, "also delete cached rustdoc JSON, stored sidebars and the catalog")
}

func runClearCache(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	running := client.IsAvailable()

	if clearDisk {
		if running {
			fmt.Println("daemon is running; stop it first with `ferrisnav stop`")
			os.Exit(1)
		}
		for _, p := range []string{config.JSONCacheDir(), cas.Dir(), config.DBPath()} {
			if err := os.RemoveAll(p); err != nil {
				slog.Error("failed to remove cache", "path", p, "error", err)
				os.Exit(1)
			}
		}
		fmt.Println("disk caches removed")
		return
	}

	if !running {
		fmt.Println("daemon is not running")
		return
	}
	if err := client.ClearCache(context.Background()); err != nil {
		slog.Error("failed to clear cache", "error", err)
		os.Exit(1)
	}
	fmt.Println("caches cleared")
}
