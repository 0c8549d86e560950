package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcdickinson/ferrisnav/internal/rpc"
	"github.com/jcdickinson/ferrisnav/internal/sidebar"
	"github.com/spf13/cobra"
)

var emitCmd = &cobra.Command{
	Use:   "emit <crate[@version]> [module]",
	Short: "Emit the sidebar index of a crate module",
	Long: `Fetch a crate's rustdoc JSON from docs.rs and emit the sidebar index of one of
its modules. The module defaults to the crate root. With --all, every public
module is emitted; --out-dir then writes them in rustdoc's layout
(<crate>/<module>/sidebar-items.js).`,
	Example: `  ferrisnav emit bevy@0.9.1 bevy::prelude::shape
  ferrisnav emit bevy bevy::prelude --format yaml -o prelude.yml
  ferrisnav emit bevy --all --out-dir ./doc`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runEmit,
}

var (
	emitAll    bool
	emitFormat string
	emitOut    string
	emitOutDir string
)

func init() {
	emitCmd.Flags().BoolVar(&emitAll, "all", false, "emit every public module")
	emitCmd.Flags().StringVar(&emitFormat, "format", "", "output format: script, json or yaml (default: from --out, else script)")
	emitCmd.Flags().StringVarP(&emitOut, "out", "o", "", "write the index to a file instead of stdout")
	emitCmd.Flags().StringVar(&emitOutDir, "out-dir", "", "with --all, write one sidebar-items file per module under this directory")
}

func parseCrateArg(arg string) (string, string) {
	name, version, _ := strings.Cut(arg, "@")
	return name, version
}

func outputFormat(flag, path string) (sidebar.Format, error) {
	if flag != "" {
		return sidebar.ParseFormat(flag)
	}
	if path != "" {
		return sidebar.FormatFromPath(path), nil
	}
	return sidebar.FormatScript, nil
}

func runEmit(cmd *cobra.Command, args []string) {
	name, version := parseCrateArg(args[0])
	spec := rpc.CrateSpec{Name: name, Version: version, All: emitAll}
	if len(args) == 2 {
		spec.Module = args[1]
	}

	format, err := outputFormat(emitFormat, emitOut)
	if err != nil {
		log.Fatalf("%v", err)
	}

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	ctx := context.Background()
	resp, err := client.Emit(ctx, []rpc.CrateSpec{spec}, func(msg string) {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	})
	if err != nil {
		log.Fatalf("failed to emit: %v", err)
	}
	if len(resp.Results) == 0 {
		log.Fatalf("daemon returned no result")
	}
	result := resp.Results[0]
	if result.Error != "" {
		log.Fatalf("%s@%s: %s", result.Name, result.Version, result.Error)
	}

	if !emitAll {
		if err := writeIndex(emitOut, result.Modules[0].Sidebar, format); err != nil {
			log.Fatalf("writing sidebar: %v", err)
		}
		return
	}

	for _, m := range result.Modules {
		if emitOutDir == "" {
			fmt.Printf("  %-40s %3d categories %5d entries\n", m.Module, m.Categories, m.Entries)
			continue
		}
		got, err := client.GetSidebar(ctx, rpc.GetSidebarRequest{Crate: name, Version: result.Version, Module: m.Module})
		if err != nil {
			log.Fatalf("reading %s: %v", m.Module, err)
		}
		path := filepath.Join(emitOutDir, filepath.Join(strings.Split(m.Module, "::")...), "sidebar-items."+extension(format))
		if err := writeIndex(path, got.Sidebar, format); err != nil {
			log.Fatalf("writing %s: %v", path, err)
		}
	}
	if emitOutDir != "" {
		fmt.Fprintf(os.Stderr, "wrote %d sidebar(s) for %s@%s to %s\n", len(result.Modules), result.Name, result.Version, emitOutDir)
	}
}

func extension(f sidebar.Format) string {
	switch f {
	case sidebar.FormatJSON:
		return "json"
	case sidebar.FormatYAML:
		return "yaml"
	default:
		return "js"
	}
}

// writeIndex encodes idx to path, or stdout when path is empty or "-".
func writeIndex(path string, idx *sidebar.Index, format sidebar.Format) error {
	var buf bytes.Buffer
	if err := sidebar.Encode(&buf, idx, format); err != nil {
		return err
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}

	if path == "" || path == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
