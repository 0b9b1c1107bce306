package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/llmcompass/compass/internal/workflow"
)

func newQueryCommand() *cobra.Command {
	var (
		sessionID       string
		reply           string
		offline         bool
		asJSON          bool
		minContext      int
		modalityIn      []string
		modalityOut     []string
		deployment      string
		reasoning       bool
		toolCalling     bool
		minSpeed        string
		includeOutdated bool
	)

	cmd := &cobra.Command{
		Use:   "query [task description]",
		Short: "Run a one-shot recommendation query",
		Long: `Run one recommendation query from the command line.

If the engine needs clarification it prints the question and the session id;
answer with:

  compass query --session <id> --reply "your answer"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			orch, _, err := buildOrchestrator(cmd.Context(), cfg, offline)
			if err != nil {
				return err
			}

			var st *workflow.State
			if reply != "" {
				if sessionID == "" {
					return fmt.Errorf("--reply requires --session")
				}
				st, err = orch.Clarify(cmd.Context(), sessionID, reply)
			} else {
				if len(args) == 0 {
					return fmt.Errorf("a task description is required")
				}
				query := ""
				for i, a := range args {
					if i > 0 {
						query += " "
					}
					query += a
				}
				cons, cerr := parseConstraints(minContext, modalityIn, modalityOut, deployment, reasoning, toolCalling, minSpeed, includeOutdated)
				if cerr != nil {
					return cerr
				}
				if sessionID == "" {
					sessionID = uuid.NewString()
				}
				st, err = orch.Start(cmd.Context(), sessionID, query, cons)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printState(cmd, st)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (generated when empty)")
	cmd.Flags().StringVar(&reply, "reply", "", "Clarification reply for a suspended session")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the local embedder and collaborator stubs instead of the LLM endpoint")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full workflow state as JSON")
	cmd.Flags().IntVar(&minContext, "min-context", 0, "Minimum context window in tokens")
	cmd.Flags().StringSliceVar(&modalityIn, "modality-in", nil, "Required input modalities (text, image, audio, video)")
	cmd.Flags().StringSliceVar(&modalityOut, "modality-out", nil, "Required output modalities")
	cmd.Flags().StringVar(&deployment, "deployment", "any", "Deployment target: any, cloud, or local")
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "Require reasoning support")
	cmd.Flags().BoolVar(&toolCalling, "tool-calling", false, "Require tool calling support")
	cmd.Flags().StringVar(&minSpeed, "min-speed", "", "Minimum speed class: slow, balanced, or fast")
	cmd.Flags().BoolVar(&includeOutdated, "include-outdated", false, "Include models marked outdated")

	return cmd
}

func printState(cmd *cobra.Command, st *workflow.State) {
	out := cmd.OutOrStdout()
	switch st.Stage {
	case workflow.StageAwaitingClarification:
		fmt.Fprintf(out, "Clarification needed: %s\n", st.ClarificationQuestion)
		fmt.Fprintf(out, "Answer with: compass query --session %s --reply \"...\"\n", st.SessionID)
	case workflow.StageClarificationExhausted:
		fmt.Fprintln(out, "Could not narrow down the request after several clarification attempts. Please start over with a more specific task description.")
	default:
		if st.Answer != nil {
			fmt.Fprintln(out, st.Answer.SummaryMarkdown)
			for _, w := range st.Answer.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
		}
	}
}
