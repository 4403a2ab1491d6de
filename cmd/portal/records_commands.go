package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and edit CRM opportunities",
	}
	cmd.AddCommand(newRecordsListCommand(ctx))
	cmd.AddCommand(newRecordsAddCommand(ctx))
	cmd.AddCommand(newRecordsSetStageCommand(ctx))
	cmd.AddCommand(newRecordsHistoryCommand(ctx))
	return cmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			opps, err := st.ListOpportunities(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if len(opps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No opportunities")
				return nil
			}
			rows := make([][]string, 0, len(opps))
			for _, opp := range opps {
				rows = append(rows, []string{
					strconv.FormatInt(opp.ID, 10),
					opp.Title,
					strconv.FormatInt(opp.OwnerID, 10),
					string(opp.Stage),
					formatLocal(opp.UpdatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Owner", "Stage", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "Only opportunities of this owner")
	return cmd
}

func newRecordsAddCommand(ctx *commandContext) *cobra.Command {
	var opp workflow.Opportunity
	var stage string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or replace an opportunity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opp.ID <= 0 {
				return errors.New("--id must be positive")
			}
			parsed, ok := workflow.ParseStage(stage)
			if !ok {
				return fmt.Errorf("%w: %q", workflow.ErrInvalidState, stage)
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			opp.Stage = parsed
			opp.UpdatedAt = time.Now().UTC()
			if err := st.UpsertOpportunity(cmd.Context(), opp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opportunity %d saved at stage %s\n", opp.ID, opp.Stage)
			return nil
		},
	}
	cmd.Flags().Int64Var(&opp.ID, "id", 0, "Opportunity id")
	cmd.Flags().StringVar(&opp.Title, "title", "", "Title")
	cmd.Flags().Int64Var(&opp.OwnerID, "owner", 0, "Owner (salesperson) id")
	cmd.Flags().StringVar(&stage, "stage", string(workflow.StageProspecting), "Pipeline stage")
	return cmd
}

func newRecordsSetStageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-stage <id> <stage>",
		Short: "Move an opportunity to another stage, with an audit entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			to, ok := workflow.ParseStage(args[1])
			if !ok {
				return fmt.Errorf("%w: %q", workflow.ErrInvalidState, args[1])
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			opp, err := st.GetOpportunity(cmd.Context(), id)
			if err != nil {
				return err
			}
			if opp == nil {
				return fmt.Errorf("%w: %d", workflow.ErrRecordNotFound, id)
			}
			applier, err := ctx.newApplier()
			if err != nil {
				return err
			}
			changed, err := applier.ApplyStageChange(cmd.Context(), id, opp.Stage, to, workflow.SourceManualEdit)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "Opportunity %d already at %s\n", id, to)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opportunity %d moved %s -> %s\n", id, opp.Stage, to)
			return nil
		},
	}
}

func newRecordsHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the stage change audit trail of an opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			entries, err := st.ListInteractions(cmd.Context(), store.InteractionFilter{RecordID: id})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stage changes recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				token := ""
				if e.TokenID != nil {
					token = strconv.FormatInt(*e.TokenID, 10)
				}
				rows = append(rows, []string{
					formatLocal(e.CreatedAt),
					e.FromState,
					e.ToState,
					e.ObservedState,
					e.Source,
					token,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "From", "To", "Observed", "Source", "Token"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
