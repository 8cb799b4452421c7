// Package assessment implements the static assessment catalog and the
// persisted per-user state machine that sequences assessment steps, runs the
// completion analysis, and keeps the profile and scoring snapshot current.
package assessment

import (
	"github.com/momentohub/MomentoBot/internal/models"
)

// Catalog is the static set of assessments offered to users. It is built once
// at startup and never mutated.
type Catalog struct {
	definitions []models.AssessmentDefinition
	byName      map[string]models.AssessmentDefinition
}

// NewCatalog builds a catalog from the given definitions. With no arguments
// the default catalog is used.
func NewCatalog(definitions ...models.AssessmentDefinition) *Catalog {
	if len(definitions) == 0 {
		definitions = defaultDefinitions
	}
	byName := make(map[string]models.AssessmentDefinition, len(definitions))
	for _, d := range definitions {
		byName[d.Name] = d
	}
	return &Catalog{definitions: definitions, byName: byName}
}

// Get returns the named assessment definition.
func (c *Catalog) Get(name string) (models.AssessmentDefinition, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// List returns catalog summaries in definition order.
func (c *Catalog) List() []models.AssessmentSummary {
	out := make([]models.AssessmentSummary, 0, len(c.definitions))
	for _, d := range c.definitions {
		out = append(out, models.AssessmentSummary{
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			StepCount:   len(d.Steps),
		})
	}
	return out
}

// Definitions returns all catalog definitions in order.
func (c *Catalog) Definitions() []models.AssessmentDefinition {
	return c.definitions
}

// defaultDefinitions is the production catalog. One assessment per category;
// each assessment owns one profile section, replaced wholesale on completion.
var defaultDefinitions = []models.AssessmentDefinition{
	{
		Name:           "simulateProfit",
		Description:    "Simula o lucro do seu negócio a partir de faturamento, custos e meta de margem",
		Category:       "finance",
		ProfileSection: "finances",
		Steps: []models.AssessmentStep{
			{Key: "monthly_revenue", Prompt: "Qual é o faturamento médio mensal do seu negócio, em reais?"},
			{Key: "monthly_costs", Prompt: "Quais são os custos totais mensais do seu negócio, em reais?"},
			{Key: "profit_margin_goal", Prompt: "Qual margem de lucro, em porcentagem, você gostaria de alcançar?"},
		},
	},
	{
		Name:           "operationsCheck",
		Description:    "Avalia a organização dos processos e a capacidade de entrega da sua operação",
		Category:       "operations",
		ProfileSection: "operations",
		Steps: []models.AssessmentStep{
			{Key: "documented_processes", Prompt: "Seus processos estão documentados? Responda: none, partial ou full."},
			{Key: "on_time_delivery", Prompt: "Qual porcentagem das suas entregas acontece dentro do prazo?"},
			{Key: "capacity_utilization", Prompt: "Quanto da sua capacidade de produção ou atendimento você usa hoje, em porcentagem?"},
		},
	},
	{
		Name:           "toolsDigital",
		Description:    "Mapeia as ferramentas de gestão e os canais digitais que o negócio usa",
		Category:       "tooling",
		ProfileSection: "tooling",
		Steps: []models.AssessmentStep{
			{Key: "management_system", Prompt: "Como você controla o negócio hoje? Responda: none, spreadsheet ou software."},
			{Key: "digital_payments", Prompt: "Você aceita pagamentos digitais, como Pix ou cartão? Responda sim ou não."},
			{Key: "online_sales_channel", Prompt: "Você vende por algum canal online? Responda sim ou não."},
		},
	},
	{
		Name:           "customerReach",
		Description:    "Entende quem são seus clientes e como você chega até eles",
		Category:       "customers",
		ProfileSection: "customers",
		Steps: []models.AssessmentStep{
			{Key: "knows_target_customer", Prompt: "Você sabe descrever quem é o seu cliente ideal? Responda sim ou não."},
			{Key: "repeat_customer_rate", Prompt: "Qual porcentagem dos seus clientes volta a comprar?"},
			{Key: "customer_feedback", Prompt: "Com que frequência você coleta opinião dos clientes? Responda: never, sometimes ou regular."},
			{Key: "marketing_channels", Prompt: "Em quantos canais de divulgação você está presente hoje?"},
		},
	},
	{
		Name:           "strategyPlanning",
		Description:    "Avalia o planejamento e a organização estratégica do negócio",
		Category:       "strategy",
		ProfileSection: "strategy",
		Steps: []models.AssessmentStep{
			{Key: "has_business_plan", Prompt: "Você tem um plano de negócio escrito? Responda sim ou não."},
			{Key: "goals_reviewed", Prompt: "Com que frequência você revisa suas metas? Responda: never, yearly ou quarterly."},
			{Key: "team_roles_defined", Prompt: "As responsabilidades da sua equipe estão bem definidas? Responda sim ou não."},
		},
	},
	{
		Name:           "businessContext",
		Description:    "Contextualiza o negócio no mercado em que atua",
		Category:       "context",
		ProfileSection: "business",
		Steps: []models.AssessmentStep{
			{Key: "years_in_business", Prompt: "Há quantos anos o seu negócio existe?"},
			{Key: "market_trend", Prompt: "O seu mercado está crescendo, estável ou encolhendo? Responda: growing, stable ou declining."},
			{Key: "competition_level", Prompt: "Como você avalia a concorrência? Responda: low, medium ou high."},
		},
	},
}
