package notifications

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// Renderer turns workflow events into localized messages.
type Renderer struct {
	printer *message.Printer
	title   cases.Caser
	loc     *time.Location
}

// NewRenderer builds a renderer for locale. Unparseable locales fall back to
// Brazilian Portuguese.
func NewRenderer(locale string) *Renderer {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.BrazilianPortuguese
	}
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.UTC
	}
	return &Renderer{
		printer: message.NewPrinter(tag),
		title:   cases.Title(tag),
		loc:     loc,
	}
}

func (r *Renderer) date(t time.Time) string {
	return t.In(r.loc).Format("02/01/2006 15:04")
}

func (r *Renderer) customer(p workflow.Proposal) string {
	name := strings.TrimSpace(p.Customer)
	if name == "" {
		return r.printer.Sprintf("proposta #%d", p.ID)
	}
	return r.title.String(strings.ToLower(name))
}

func (r *Renderer) money(p workflow.Proposal, amount float64) string {
	currency := strings.TrimSpace(p.Currency)
	if currency == "" {
		currency = "BRL"
	}
	return r.printer.Sprintf("%s %.2f", currency, amount)
}

// RenderStatusCheckLink asks a salesperson to confirm their pipeline.
func (r *Renderer) RenderStatusCheckLink(link string, items int, expiresAt time.Time) Message {
	return Message{
		Title: "Portal - Atualização de funil",
		Body: r.printer.Sprintf(
			"Confirme a etapa de %d oportunidades no link abaixo até %s.\n%s",
			items, r.date(expiresAt), link,
		),
		Tags: []string{"portal", "status-check"},
	}
}

// RenderAnalysisLink asks an approver to decide on a proposal.
func (r *Renderer) RenderAnalysisLink(p workflow.Proposal, link string, expiresAt time.Time) Message {
	return Message{
		Title: "Portal - Análise de orçamento",
		Body: r.printer.Sprintf(
			"Orçamento de %s (%s): %s com desconto de %.1f%%, líquido %s.\nAprove ou rejeite até %s:\n%s",
			r.customer(p), strings.TrimSpace(p.Title),
			r.money(p, p.Amount), p.DiscountPercent, r.money(p, p.NetAmount()),
			r.date(expiresAt), link,
		),
		Tags:     []string{"portal", "analysis"},
		Priority: "high",
	}
}

// RenderArtifactReady announces that the approved document is available.
func (r *Renderer) RenderArtifactReady(p workflow.Proposal, link string) Message {
	return Message{
		Title: "Portal - Documento disponível",
		Body: r.printer.Sprintf(
			"O documento aprovado de %s está disponível:\n%s",
			r.customer(p), link,
		),
		Tags: []string{"portal", "artifact"},
	}
}

// RenderTest is sent by the test-notify command.
func (r *Renderer) RenderTest() Message {
	return Message{
		Title:    "Portal - Teste",
		Body:     "Teste do sistema de notificações",
		Tags:     []string{"portal", "test"},
		Priority: "low",
	}
}
