package cli

import (
	"fmt"

	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/BTreeMap/NeuroCare/internal/lexicon"
	"github.com/spf13/cobra"
)

func newLexiconCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Dump or validate lexicon files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the active lexicon as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lx, err := opts.loadLexicon()
			if err != nil {
				return err
			}
			data, err := lx.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Check a lexicon file, including that no fallback reply would be rejected as generic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.path()
			if len(args) == 1 {
				path = args[0]
			}
			lx, err := lexicon.Load(path)
			if err != nil {
				return err
			}
			if _, err := arbiter.New(lx); err != nil {
				return err
			}
			res := lexiconSummary{
				Path:          path,
				Valid:         true,
				CrisisWords:   len(lx.Crisis.Keywords),
				IntentRules:   len(lx.Intents),
				ResponseSets:  len(lx.Responses),
				FallbackTopic: len(lx.Fallback.Topics),
			}
			if res.Path == "" {
				res.Path = "(built-in)"
			}
			return opts.printResult(cmd, res, fmt.Sprintf("%s: ok (%d intent rules, %d response sets)", res.Path, res.IntentRules, res.ResponseSets))
		},
	})
	return cmd
}

type lexiconSummary struct {
	Path          string `json:"path"`
	Valid         bool   `json:"valid"`
	CrisisWords   int    `json:"crisis_keywords"`
	IntentRules   int    `json:"intent_rules"`
	ResponseSets  int    `json:"response_sets"`
	FallbackTopic int    `json:"fallback_topics"`
}
