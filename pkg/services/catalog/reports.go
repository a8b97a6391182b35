package catalog

import "github.com/de-tools/revenue-atlas/pkg/models/domain"

const (
	ReportRevenueTotal     = "faturamento_total"
	ReportExpensesTotal    = "despesas_total"
	ReportRevenueByInsurer = "faturamento_convenio"
	ReportRevenueByGroup   = "faturamento_grupo"
	ReportNewPatients      = "pacientes_novos"
	ReportAverageTicket    = "ticket_medio"
)

var monetaryCandidates = []string{"ValorTotal", "TotalGeral", "R$", "Valor", "VALOR", "Total"}

// DefaultReports are the dashboard queries in use. Candidate lists only ever
// grow: the backend renames fields without notice.
func DefaultReports() []Report {
	return []Report{
		{
			ID:                ReportRevenueTotal,
			Procedure:         "spBIFaturamentoTotalValorCard",
			Description:       "Faturamento total da clínica",
			Parameters:        []string{"@DATAINICIO", "@DATAFIM", "@UNIDADE"},
			TrailingSeparator: true,
			Schema: domain.FieldSchema{
				Amount: monetaryCandidates,
			},
		},
		{
			ID:                ReportExpensesTotal,
			Procedure:         "spBITotalDespesas",
			Description:       "Total de despesas",
			Parameters:        []string{"@DATAINICIO", "@DATAFIM", "@UNIDADE"},
			TrailingSeparator: true,
			Schema: domain.FieldSchema{
				Amount: []string{"R$", "ValorTotal", "TotalGeral", "Valor", "VALOR", "Total"},
			},
		},
		{
			ID:                ReportRevenueByInsurer,
			Procedure:         "spBIFaturamentoPorConvenioValor",
			Description:       "Faturamento por convênio",
			Parameters:        []string{"@DATAINICIO", "@DATAFIM", "@Profissional", "@UNIDADE"},
			TrailingSeparator: true,
			Schema: domain.FieldSchema{
				Label:       []string{"Convenio", "CONVENIO", "convenio", "Nome"},
				Amount:      []string{"R$", "Valor", "VALOR"},
				Placeholder: "Convênio",
			},
		},
		{
			ID:                ReportRevenueByGroup,
			Procedure:         "spBIFaturamentoPorGrupodeProcedimentoValor",
			Description:       "Faturamento por grupo de procedimento",
			Parameters:        []string{"@DATAINICIO", "@DATAFIM", "@Profissional", "@UNIDADE", "@PROFISSIONAL"},
			TrailingSeparator: true,
			Schema: domain.FieldSchema{
				Label:       []string{"Grupo", "GRUPO", "GrupoProcedimento", "Nome"},
				Amount:      []string{"R$", "Valor", "VALOR"},
				Placeholder: "Grupo",
			},
		},
		{
			ID:                ReportNewPatients,
			Procedure:         "spBIPacientesCadastrados",
			Description:       "Novos pacientes cadastrados",
			Parameters:        []string{"@DATAINICIO", "@DATAFIM", "@UNIDADE", "@CONVENIO", "@TIPOENTRADA"},
			TrailingSeparator: true,
			Schema: domain.FieldSchema{
				Count: []string{"Qtd", "QTD", "Quantidade", "TOTAL", "PACIENTES", "Unnamed1"},
			},
		},
		{
			ID:          ReportAverageTicket,
			Procedure:   "spBITicketMedioCard",
			Description: "Ticket médio",
			Parameters:  []string{"@DATAINICIO", "@DATAFIM", "@Profissional"},
			Schema: domain.FieldSchema{
				Amount: []string{"R$", "TICKETMEDIO", "TicketMedio", "Ticket"},
			},
		},
	}
}
