package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BTreeMap/NeuroCare/internal/app"
	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/BTreeMap/NeuroCare/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCmd(opts *options) *cobra.Command {
	var (
		mode        string
		tone        []string
		historyFile string
		live        bool
	)
	cmd := &cobra.Command{
		Use:   "chat [text...]",
		Short: "Run one chat turn and print the reply",
		Long:  "Runs one turn through the arbiter. Without --live no provider is configured, so every mode is answered locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			history, err := readHistory(historyFile)
			if err != nil {
				return err
			}
			req := models.ChatRequest{Message: text, History: history, Mode: mode, Tone: tone}
			if err := req.Validate(); err != nil {
				return err
			}

			arb, err := opts.buildArbiter(live)
			if err != nil {
				return err
			}

			turns := make([]arbiter.Turn, 0, len(req.History))
			for _, h := range req.History {
				turns = append(turns, arbiter.Turn{Sender: arbiter.Sender(h.Sender), Text: h.Text, Intent: h.Intent})
			}
			res := arb.HandleTurn(cmd.Context(), arbiter.Request{
				Message:   req.Message,
				History:   turns,
				Mode:      req.Mode,
				ClientID:  "cli",
				ToneTags:  req.Tone,
				RequestID: uuid.New().String(),
			})
			out := models.ChatResponse{
				Reply:        res.Reply,
				EmotionLabel: res.Emotion.Label,
				EmotionScore: res.Emotion.Score,
				Intent:       string(res.Intent),
				IsCrisis:     res.IsCrisis,
				LLMMode:      string(res.ModeUsed),
			}
			return opts.printResult(cmd, out, res.Reply)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(arbiter.ModeTemplate), "Reply mode: template, openai or gemini")
	cmd.Flags().StringSliceVarP(&tone, "tone", "t", nil, "Tone tags, e.g. concise,warm_supportive")
	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with prior turns ([{\"sender\":\"bot\",\"text\":\"...\",\"intent\":\"...\"}])")
	cmd.Flags().BoolVar(&live, "live", false, "Use providers and the emotion model configured in the environment")
	return cmd
}

func (o *options) buildArbiter(live bool) (*arbiter.Arbiter, error) {
	if live {
		app.LoadDotEnv()
		cfg := app.ConfigFromEnv()
		cfg.LexiconPath = o.path()
		return app.BuildArbiter(cfg)
	}
	lx, err := o.loadLexicon()
	if err != nil {
		return nil, err
	}
	return arbiter.New(lx)
}

func readHistory(path string) ([]models.HistoryMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var history []models.HistoryMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	return history, nil
}
