package cohort

import (
	"github.com/nutes/frontdesk/internal/platform/export"
)

func (d *Dashboard) Tables() []export.Table {
	demo, socio, tri := d.Demographics, d.Socioeconomic, d.Triage
	summary := export.Table{
		Name:    "Resumo",
		Headers: []string{"Indicador", "Valor"},
		Rows: [][]any{
			{"Total de pacientes", d.TotalCount},
			{"Renda per capita média", socio.PerCapitaIncome},
			{"Gerado em", d.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		},
	}
	return []export.Table{
		summary,
		export.BucketTable("Faixa etária", "Faixa", demo.AgeBuckets),
		export.BucketTable("Gênero", "Gênero", demo.GenderDistribution),
		export.BucketTable("Cidades", "Cidade", demo.TopCities),
		export.BucketTable("Bairros", "Bairro", demo.TopNeighborhoods),
		export.BucketTable("Densidade por bairro", "Bairro", demo.NeighborhoodDensity),
		export.BucketTable("Renda familiar", "Faixa", socio.IncomeBrackets),
		export.BucketTable("Estado civil", "Estado civil", socio.MaritalStatus),
		export.BucketTable("Moradia", "Moradia", socio.HousingStatus),
		export.BucketTable("Transporte", "Transporte", socio.TransportType),
		export.BucketTable("Escolaridade", "Escolaridade", socio.EducationLevel),
		export.BucketTable("Moradores", "Moradores", socio.ResidentsDistribution),
		export.BucketTable("Vínculo UFPE", "Resposta", socio.UfpeAffiliationSummary),
		export.BucketTable("Vínculo UFPE normalizado", "Resposta", socio.UfpeAffiliationNormalized),
		export.BucketTable("Tipo de vínculo", "Tipo", socio.UfpeAffiliationTypeBreakdown),
		export.BucketTable("Prioridade", "Prioridade", tri.PriorityDistribution),
		export.BucketTable("Queixas", "Queixa", tri.TopComplaints),
		export.BucketTable("Origem", "Origem", tri.TopReferralSources),
		export.BucketTable("Hábitos", "Hábito", tri.TopLifestyleNotes),
		export.BucketTable("Especialidades", "Especialidade", tri.TopSpecialties),
	}
}
