// Package cli implements the neurocare-cli commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BTreeMap/NeuroCare/internal/lexicon"
	"github.com/spf13/cobra"
)

// RootCmd is the top-level command.
var RootCmd = NewRootCmd()

type options struct {
	lexiconPath string
	format      string
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "neurocare-cli",
		Short:         "Inspect and exercise the NeuroCare reply pipeline",
		Long:          "Developer tools for NeuroCare: classify utterances, check crisis keywords, run a single chat turn and manage lexicon files.",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&opts.lexiconPath, "lexicon", "l", "", "Lexicon YAML file (default: $LEXICON_PATH or the built-in lexicon)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "json", "Output format: json or text")

	root.AddCommand(
		newClassifyCmd(opts),
		newCrisisCmd(opts),
		newChatCmd(opts),
		newLexiconCmd(opts),
	)
	return root
}

func (o *options) path() string {
	if o.lexiconPath != "" {
		return o.lexiconPath
	}
	return os.Getenv("LEXICON_PATH")
}

func (o *options) loadLexicon() (*lexicon.Lexicon, error) {
	return lexicon.Load(o.path())
}

// inputText joins args, or reads stdin when there are none.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// printResult writes v as indented JSON, or as text when format is "text".
func (o *options) printResult(cmd *cobra.Command, v interface{}, text string) error {
	out := cmd.OutOrStdout()
	switch o.format {
	case "text":
		_, err := fmt.Fprintln(out, text)
		return err
	case "json", "":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	default:
		return fmt.Errorf("unknown format %q (want json or text)", o.format)
	}
}
