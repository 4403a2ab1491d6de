package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AndersD76/portalpili-producao-sub005/internal/api"
	"github.com/AndersD76/portalpili-producao-sub005/internal/issuer"
	"github.com/AndersD76/portalpili-producao-sub005/internal/notifications"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

type issueFlags struct {
	subject   int64
	recipient string
	notify    bool
	jsonOut   bool
}

func (f *issueFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.subject, "subject", 0, "Subject (salesperson or approver) id")
	cmd.Flags().StringVar(&f.recipient, "recipient", "", "Notification recipient for the link")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "Send the link to --recipient right away")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Output JSON")
}

func newIssueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue response links",
	}
	cmd.AddCommand(newIssueStatusCheckCommand(ctx))
	cmd.AddCommand(newIssueAnalysisCommand(ctx))
	return cmd
}

func newIssueStatusCheckCommand(ctx *commandContext) *cobra.Command {
	var flags issueFlags
	var items string

	cmd := &cobra.Command{
		Use:   "status-check",
		Short: "Ask a salesperson to confirm the stage of their opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parseIDList(items)
			if err != nil {
				return err
			}
			iss, err := ctx.newIssuer(nil)
			if err != nil {
				return err
			}
			tok, err := iss.IssueStatusCheckToken(cmd.Context(), flags.subject, refs, issuer.WithRecipient(flags.recipient))
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			link := cfg.StatusCheckLink(tok.Header.Token)
			msg := ctx.newRenderer().RenderStatusCheckLink(link, len(tok.Items), tok.Header.ExpiresAt)
			return finishIssue(cmd, ctx, flags, tok, link, msg)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&items, "items", "", "Comma-separated opportunity ids")
	return cmd
}

func newIssueAnalysisCommand(ctx *commandContext) *cobra.Command {
	var flags issueFlags
	var proposal workflow.Proposal

	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Ask an approver to decide on a budget proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			iss, err := ctx.newIssuer(nil)
			if err != nil {
				return err
			}
			tok, err := iss.IssueBudgetAnalysisToken(cmd.Context(), flags.subject, proposal, issuer.WithRecipient(flags.recipient))
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			link := cfg.AnalysisLink(tok.Header.Token)
			msg := ctx.newRenderer().RenderAnalysisLink(*tok.Proposal, link, tok.Header.ExpiresAt)
			return finishIssue(cmd, ctx, flags, tok, link, msg)
		},
	}
	flags.register(cmd)
	cmd.Flags().Int64Var(&proposal.ID, "proposal-id", 0, "Proposal id")
	cmd.Flags().StringVar(&proposal.Customer, "customer", "", "Customer name")
	cmd.Flags().StringVar(&proposal.Title, "title", "", "Proposal title")
	cmd.Flags().Float64Var(&proposal.Amount, "amount", 0, "Gross amount")
	cmd.Flags().Float64Var(&proposal.DiscountPercent, "discount", 0, "Requested discount percentage")
	cmd.Flags().StringVar(&proposal.Currency, "currency", "BRL", "Currency code")
	cmd.Flags().StringVar(&proposal.Notes, "notes", "", "Notes shown to the approver")
	return cmd
}

func finishIssue(cmd *cobra.Command, ctx *commandContext, flags issueFlags, tok *workflow.Token, link string, msg notifications.Message) error {
	sent := false
	if flags.notify {
		if strings.TrimSpace(flags.recipient) == "" {
			return errors.New("--notify requires --recipient")
		}
		receipt, err := ctx.deliver(cmd.Context(), tok.Header.ID, flags.recipient, msg)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Link issued but notification failed: %v\n", err)
		}
		sent = err == nil && receipt.Delivered
	}

	if flags.jsonOut {
		return writeJSON(cmd, api.NewIssueResponse(tok.Header, link, sent))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Token:    %s\n", tok.Header.Token)
	fmt.Fprintf(out, "Link:     %s\n", link)
	fmt.Fprintf(out, "Items:    %d\n", len(tok.Items))
	fmt.Fprintf(out, "Expires:  %s\n", tok.Header.ExpiresAt.Local().Format("2006-01-02 15:04"))
	if flags.notify {
		fmt.Fprintf(out, "Notified: %s\n", yesNo(sent))
	}
	return nil
}

func parseIDList(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
