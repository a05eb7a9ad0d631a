package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/ontology"
)

// ReviewCmd applies expert review actions.
var ReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Apply expert review actions",
	Long: `Apply expert review actions to entities and relationships.

Every action requires an expert and a comment; both land on the append-only
audit trail together with the status change. Approve and reject stay
available on already-reviewed items, so nothing is permanently locked.

Examples:
  ontoforge review approve ent-42 --expert alice@clinic --comment "verified against manual"
  ontoforge review reject ent-42 ent-43 --expert alice@clinic --comment "wrong subsystem"
  ontoforge review reopen ent-42 --expert bob@clinic --comment "new evidence"
  ontoforge review override ent-42 0.95 --expert alice@clinic --comment "confirmed by vendor"
  ontoforge review history ent-42`,
}

var reviewActions = map[string]ontology.ReviewAction{
	"approve": ontology.ActionApprove,
	"reject":  ontology.ActionReject,
	"revise":  ontology.ActionRequestRevision,
	"reopen":  ontology.ActionReopen,
	"comment": ontology.ActionComment,
}

func init() {
	for name, action := range reviewActions {
		ReviewCmd.AddCommand(newTransitionCmd(name, action))
	}
	addReviewFlags(reviewOverrideCmd)
	ReviewCmd.AddCommand(reviewOverrideCmd)
	ReviewCmd.AddCommand(reviewHistoryCmd)
}

func newTransitionCmd(name string, action ontology.ReviewAction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <id>...",
		Short: "Apply " + string(action) + " to one or more items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, action, args)
		},
	}
	addReviewFlags(cmd)
	return cmd
}

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().String("expert", "", "Expert identity recorded on the audit trail (required)")
	cmd.Flags().String("comment", "", "Review comment recorded on the audit trail (required)")
	cmd.MarkFlagRequired("expert")
	cmd.MarkFlagRequired("comment")
}

func runTransition(cmd *cobra.Command, action ontology.ReviewAction, ids []string) error {
	expert, _ := cmd.Flags().GetString("expert")
	comment, _ := cmd.Flags().GetString("comment")

	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	defer ws.Close()

	results := ws.container.BulkTransition(ids, action, expert, comment)

	failed := 0
	data := pterm.TableData{{"ID", "Status", "Error"}}
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
		data = append(data, []string{res.ID, string(res.Status), res.Error})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if failed == len(results) {
		return errors.Newf("all %d transitions failed", failed)
	}
	if err := ws.save(cmd.Context()); err != nil {
		return err
	}
	if failed > 0 {
		return errors.Newf("%d of %d transitions failed", failed, len(results))
	}

	pterm.Success.Printf("%s applied to %d items", action, len(results))
	pterm.Println()
	return nil
}

var reviewOverrideCmd = &cobra.Command{
	Use:   "override <id> <confidence>",
	Short: "Override the confidence of an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		expert, _ := cmd.Flags().GetString("expert")
		comment, _ := cmd.Flags().GetString("comment")

		confidence, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return errors.Wrapf(err, "parse confidence %q", args[1])
		}

		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		if err := ws.container.OverrideConfidence(args[0], confidence, expert, comment); err != nil {
			return err
		}
		if err := ws.save(cmd.Context()); err != nil {
			return err
		}

		pterm.Success.Printf("Confidence of %s set to %.2f", args[0], confidence)
		pterm.Println()
		return nil
	},
}

var reviewHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the audit trail of an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		records, err := ws.container.ReviewHistory(args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			pterm.Info.Println("No review records")
			return nil
		}

		data := pterm.TableData{{"Timestamp", "Expert", "Action", "Comment"}}
		for _, rec := range records {
			data = append(data, []string{
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.ExpertID,
				string(rec.Action),
				rec.Comment,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}
