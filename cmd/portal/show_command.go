package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AndersD76/portalpili-producao-sub005/internal/api"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <token>",
		Short: "Display a token with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			tok, err := st.LookupToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			artifact, err := st.GetArtifact(cmd.Context(), tok.Header.ID)
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			now := time.Now().UTC()

			if jsonOut {
				if tok.Header.Kind == workflow.KindBudgetAnalysis {
					link := ""
					if artifact != nil {
						link = cfg.ArtifactLink(tok.Header.Token)
					}
					return writeJSON(cmd, api.NewAnalysisView(tok, link, now))
				}
				return writeJSON(cmd, api.NewStatusCheckView(tok, nil, now))
			}

			h := tok.Header
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token:     %s (id %d)\n", logging.TokenPrefix(h.Token), h.ID)
			fmt.Fprintf(out, "Kind:      %s\n", h.Kind)
			fmt.Fprintf(out, "Subject:   %d\n", h.SubjectID)
			fmt.Fprintf(out, "Status:    %s\n", statusLabel(h.EffectiveStatus(now)))
			fmt.Fprintf(out, "Responded: %d/%d\n", h.RespondedItems, h.TotalItems)
			fmt.Fprintf(out, "Created:   %s\n", formatLocal(h.CreatedAt))
			fmt.Fprintf(out, "Expires:   %s\n", formatLocal(h.ExpiresAt))
			if h.DecidedAt != nil {
				fmt.Fprintf(out, "Decided:   %s\n", formatLocal(*h.DecidedAt))
			}
			if h.NotifyRecipient != "" {
				fmt.Fprintf(out, "Notified:  %s %s\n", h.NotifyRecipient, h.NotifyMessageID)
			}
			if p := tok.Proposal; p != nil {
				fmt.Fprintf(out, "Proposal:  #%d %s / %s, %.2f %s at %.1f%% (net %.2f)\n",
					p.ID, p.Customer, p.Title, p.Amount, p.Currency, p.DiscountPercent, p.NetAmount())
			}
			if artifact != nil {
				fmt.Fprintf(out, "Artifact:  %s, %d bytes, sha256 %s\n", artifact.ContentType, artifact.SizeBytes, artifact.SHA256)
			}

			rows := make([][]string, 0, len(tok.Items))
			for _, item := range tok.Items {
				responded := ""
				if item.RespondedAt != nil {
					responded = formatLocal(*item.RespondedAt)
				}
				discount := ""
				if item.AdjustedDiscount != nil {
					discount = strconv.FormatFloat(*item.AdjustedDiscount, 'f', -1, 64)
				}
				rows = append(rows, []string{
					strconv.FormatInt(item.RecordID, 10),
					item.PriorState,
					item.NewState,
					discount,
					item.Note,
					responded,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Record", "Prior", "Answer", "Discount", "Note", "Responded"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newTokensCommand(ctx *commandContext) *cobra.Command {
	var subject int64
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "List recently issued tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			headers, err := st.ListTokens(cmd.Context(), subject, limit)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			if jsonOut {
				views := make([]api.Header, 0, len(headers))
				for _, h := range headers {
					views = append(views, api.FromHeader(h, now))
				}
				return writeJSON(cmd, views)
			}
			if len(headers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tokens issued")
				return nil
			}
			rows := make([][]string, 0, len(headers))
			for _, h := range headers {
				rows = append(rows, []string{
					strconv.FormatInt(h.ID, 10),
					logging.TokenPrefix(h.Token),
					string(h.Kind),
					strconv.FormatInt(h.SubjectID, 10),
					statusLabel(h.EffectiveStatus(now)),
					fmt.Sprintf("%d/%d", h.RespondedItems, h.TotalItems),
					formatLocal(h.ExpiresAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Token", "Kind", "Subject", "Status", "Responded", "Expires"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().Int64Var(&subject, "subject", 0, "Only tokens for this subject")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of tokens")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func formatLocal(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
