package cli

import (
	"fmt"

	"github.com/BTreeMap/NeuroCare/internal/crisis"
	"github.com/BTreeMap/NeuroCare/internal/intent"
	"github.com/spf13/cobra"
)

type classifyResult struct {
	Text     string          `json:"text"`
	Intent   intent.Category `json:"intent"`
	Keyword  string          `json:"keyword,omitempty"`
	Rule     int             `json:"rule"`
	IsCrisis bool            `json:"is_crisis"`
}

func newClassifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text...]",
		Short: "Show the intent the cascade assigns to an utterance",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			lx, err := opts.loadLexicon()
			if err != nil {
				return err
			}
			m := intent.NewClassifier(lx.IntentRules()).Explain(text)
			res := classifyResult{
				Text:     text,
				Intent:   m.Category,
				Keyword:  m.Keyword,
				Rule:     m.Rule,
				IsCrisis: crisis.NewDetector(lx.Crisis.Keywords).IsCrisis(text),
			}
			summary := fmt.Sprintf("%s (rule %d, keyword %q, crisis %v)", res.Intent, res.Rule, res.Keyword, res.IsCrisis)
			return opts.printResult(cmd, res, summary)
		},
	}
}

type crisisResult struct {
	Text     string `json:"text"`
	IsCrisis bool   `json:"is_crisis"`
	Keyword  string `json:"keyword,omitempty"`
}

func newCrisisCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "crisis [text...]",
		Short: "Check an utterance against the crisis keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			lx, err := opts.loadLexicon()
			if err != nil {
				return err
			}
			kw, ok := crisis.NewDetector(lx.Crisis.Keywords).Match(text)
			res := crisisResult{Text: text, IsCrisis: ok, Keyword: kw}
			summary := "no crisis keyword"
			if ok {
				summary = fmt.Sprintf("crisis keyword %q", kw)
			}
			return opts.printResult(cmd, res, summary)
		},
	}
}
