package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcdickinson/ferrisnav/internal/config"
	"github.com/jcdickinson/ferrisnav/internal/nav"
	"github.com/jcdickinson/ferrisnav/internal/sidebar"
	"github.com/spf13/cobra"
)

var (
	inputFormat string
	lenient     bool
)

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&inputFormat, "from", "", "input format: script, json or yaml (default: from file extension)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "accept duplicate or empty names (default: sidebar.validation from config)")
}

// validationEnabled combines --lenient with the configured validation mode.
func validationEnabled(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("lenient") {
		return !lenient
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg.Sidebar.Validation.Enabled()
}

// readIndex decodes the index at path ("-" is stdin).
func readIndex(path string, validate bool) (*sidebar.Index, error) {
	format := sidebar.FormatFromPath(path)
	if inputFormat != "" {
		f, err := sidebar.ParseFormat(inputFormat)
		if err != nil {
			return nil, err
		}
		format = f
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return sidebar.Decode(r, format, sidebar.WithValidation(validate))
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check sidebar index files for malformed data",
	Long: `Decode each file and report structural errors (entries that are not
[name, summary] string pairs) and, unless --lenient, duplicate or empty names.
Unrecognized categories are reported as warnings. Exits non-zero on any error.`,
	Example: `  ferrisnav validate doc/bevy/prelude/shape/sidebar-items.js
  ferrisnav validate --from json - < index.json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) {
	validate := validationEnabled(cmd)
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		idx, err := readIndex(path, validate)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %s\n", path, describeError(err))
			continue
		}
		fmt.Fprintf(out, "%s: ok (%d categories, %d entries)\n", path, idx.Len(), idx.EntryCount())
		for _, w := range sidebar.Warnings(idx) {
			fmt.Fprintf(out, "%s: warning: %s\n", path, w)
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d file(s) invalid", failed, len(args))
	}
}

// describeError expands a validation error into one problem per line.
func describeError(err error) string {
	var verr *sidebar.ValidationError
	if errors.As(err, &verr) && len(verr.Problems) > 1 {
		lines := make([]string, 0, len(verr.Problems)+1)
		lines = append(lines, "invalid sidebar index:")
		for _, p := range verr.Problems {
			lines = append(lines, "  "+p.String())
		}
		return strings.Join(lines, "\n")
	}
	return err.Error()
}

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a sidebar index as HTML, markdown or terminal text",
	Example: `  ferrisnav render --format html doc/bevy/prelude/shape/sidebar-items.js
  ferrisnav emit bevy bevy::prelude | ferrisnav render -`,
	Args: cobra.ExactArgs(1),
	Run:  runRender,
}

var (
	renderFormat  string
	renderTitle   string
	renderBaseURL string
	renderNoColor bool
)

func init() {
	addInputFlags(renderCmd)
	renderCmd.Flags().StringVar(&renderFormat, "format", "text", "output format: html, markdown or text")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "page title (default: the file's directory name)")
	renderCmd.Flags().StringVar(&renderBaseURL, "base-url", "", "prefix for item links")
	renderCmd.Flags().BoolVar(&renderNoColor, "no-color", false, "disable terminal colors")

	addInputFlags(validateCmd)
	addInputFlags(convertCmd)
	convertCmd.Flags().StringVar(&convertTo, "to", "", "output format: script, json or yaml (default: from output path)")
}

func runRender(cmd *cobra.Command, args []string) {
	path := args[0]
	title := renderTitle
	if title == "" && path != "-" {
		title = filepath.Base(filepath.Dir(path))
		if title == "." {
			title = ""
		}
	}

	page := nav.NewPage(title, nil)
	idx, err := readIndex(path, validationEnabled(cmd))
	if err != nil {
		log.Fatalf("%s: %s", path, describeError(err))
	}
	if err := page.Register(idx); err != nil {
		log.Fatalf("%v", err)
	}

	opts := nav.RenderOptions{BaseURL: renderBaseURL, NoColor: renderNoColor}
	out := cmd.OutOrStdout()
	switch strings.ToLower(renderFormat) {
	case "html":
		err = nav.RenderHTML(out, page, opts)
	case "markdown", "md":
		err = nav.RenderMarkdown(out, page, opts)
	case "text":
		err = nav.RenderText(out, page, opts)
	default:
		log.Fatalf("unknown render format %q (want html, markdown or text)", renderFormat)
	}
	if err != nil {
		log.Fatalf("rendering: %v", err)
	}
}

var convertCmd = &cobra.Command{
	Use:   "convert <in> [out]",
	Short: "Convert a sidebar index between script, JSON and YAML",
	Example: `  ferrisnav convert sidebar-items.js sidebar.yaml
  ferrisnav convert --to json sidebar-items.js`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runConvert,
}

var convertTo string

func runConvert(cmd *cobra.Command, args []string) {
	idx, err := readIndex(args[0], validationEnabled(cmd))
	if err != nil {
		log.Fatalf("%s: %s", args[0], describeError(err))
	}

	var out string
	if len(args) == 2 {
		out = args[1]
	}
	format, err := outputFormat(convertTo, out)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := writeIndex(out, idx, format); err != nil {
		log.Fatalf("writing %s: %v", out, err)
	}
}
