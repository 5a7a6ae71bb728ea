package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReplenishmentMetrics records ingest, calculation and proposal activity.
type ReplenishmentMetrics struct {
	ingestRows     *prometheus.CounterVec
	importWarnings prometheus.Counter
	calculations   prometheus.Counter
	approvals      prometheus.Counter
	archivedLines  prometheus.Counter
}

// NewReplenishmentMetrics registers the collectors on reg. A nil registerer
// yields a recorder whose methods are no-ops.
func NewReplenishmentMetrics(reg prometheus.Registerer) *ReplenishmentMetrics {
	if reg == nil {
		return &ReplenishmentMetrics{}
	}
	ingestRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replenish_ingest_rows_total",
		Help: "Import rows processed by result.",
	}, []string{"result"})
	importWarnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replenish_import_warnings_total",
		Help: "Data quality warnings attached to imported snapshots.",
	})
	calculations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replenish_calculations_total",
		Help: "Replenishment calculations performed.",
	})
	approvals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replenish_proposals_approved_total",
		Help: "Draft proposals approved and archived.",
	})
	archivedLines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replenish_proposal_lines_archived_total",
		Help: "Proposal lines written to the archive.",
	})
	reg.MustRegister(ingestRows, importWarnings, calculations, approvals, archivedLines)
	return &ReplenishmentMetrics{
		ingestRows:     ingestRows,
		importWarnings: importWarnings,
		calculations:   calculations,
		approvals:      approvals,
		archivedLines:  archivedLines,
	}
}

// ObserveIngest adds the outcome of one ingest call.
func (m *ReplenishmentMetrics) ObserveIngest(imported, failed, warnings int) {
	if m == nil || m.ingestRows == nil {
		return
	}
	m.ingestRows.WithLabelValues("imported").Add(float64(imported))
	m.ingestRows.WithLabelValues("failed").Add(float64(failed))
	m.importWarnings.Add(float64(warnings))
}

// AddCalculations counts n engine evaluations.
func (m *ReplenishmentMetrics) AddCalculations(n int) {
	if m == nil || m.calculations == nil {
		return
	}
	m.calculations.Add(float64(n))
}

// ObserveApproval counts one approved proposal with the given number of lines.
func (m *ReplenishmentMetrics) ObserveApproval(lines int) {
	if m == nil || m.approvals == nil {
		return
	}
	m.approvals.Inc()
	m.archivedLines.Add(float64(lines))
}
