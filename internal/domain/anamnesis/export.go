package anamnesis

import (
	"github.com/nutes/frontdesk/internal/platform/export"
)

// Tables lays the dashboard out as workbook sheets.
func (d *Dashboard) Tables() []export.Table {
	summary := export.Table{
		Name:    "Resumo",
		Headers: []string{"Indicador", "Valor"},
		Rows: [][]any{
			{"Total de anamneses", d.TotalCount},
			{"Dor média", d.AveragePainLevel},
			{"Novas hoje", d.NewToday},
			{"Gerado em", d.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		},
	}

	recent := export.Table{
		Name:    "Recentes",
		Headers: []string{"Paciente", "Queixa", "Dor", "Data"},
	}
	for _, e := range d.RecentEntries {
		var pain any = ""
		if e.PainLevel != nil {
			pain = *e.PainLevel
		}
		recent.Rows = append(recent.Rows, []any{e.PatientName, e.Complaint, pain, e.CreatedAt.Format("2006-01-02 15:04")})
	}

	return []export.Table{
		summary,
		export.BucketTable("Nível de dor", "Nível", d.PainDistribution),
		export.BucketTable("Volume diário", "Data", d.DailyVolume),
		recent,
		export.BucketTable("Queixas", "Queixa", d.TopComplaints),
		export.BucketTable("Histórico", "Histórico", d.TopHistory),
		export.BucketTable("Medicamentos", "Medicamento", d.TopMedications),
		export.BucketTable("Objetivos", "Objetivo", d.TopGoals),
	}
}
