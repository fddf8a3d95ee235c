package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/worker"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse every stylesheet under --style-source and report errors",
	Long:  "validate walks the style-source directory, parses each *.mapcss file, and exits non-zero if any fails.",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().Bool("progress", true, "Print a running count while validating")
	if err := viper.BindPFlag("validate.progress", validateCmd.Flags().Lookup("progress")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir := viper.GetString("style-source")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".mapcss") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	prog := worker.NewProgress(len(files), viper.GetBool("validate.progress"))

	failed := 0
	for i, path := range files {
		if _, parseErr := parseStylesheetFile(path); parseErr != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s: %v\n", path, parseErr)
		}
		prog.Update(i+1, len(files), failed)
	}
	prog.Done()
	fmt.Fprintln(cmd.OutOrStdout(), prog.Summary())

	if failed > 0 {
		return fmt.Errorf("%d of %d stylesheets failed to parse", failed, len(files))
	}
	return nil
}

func parseStylesheetFile(path string) (*stylesheet.Stylesheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return stylesheet.Parse(string(data), path)
}
