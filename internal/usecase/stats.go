package usecase

import (
	"sync"

	"github.com/example/ab-compare/internal/classifier"
)

// BackendSummary aggregates the calls made to one backend.
type BackendSummary struct {
	Requests            int64   `json:"requests"`
	Successes           int64   `json:"successes"`
	SuccessRate         float64 `json:"success_rate"`
	AverageResponseTime float64 `json:"average_response_time"`
}

// StatsSummary represents comparison insights since process start.
type StatsSummary struct {
	TotalComparisons     int64          `json:"total_comparisons"`
	ComparisonsAvailable int64          `json:"comparisons_available"`
	Top1Agreements       int64          `json:"top1_agreements"`
	AgreementRate        float64        `json:"agreement_rate"`
	WinsModelA           int64          `json:"wins_model_a"`
	WinsModelB           int64          `json:"wins_model_b"`
	ModelA               BackendSummary `json:"model_a"`
	ModelB               BackendSummary `json:"model_b"`
}

type backendCounters struct {
	requests     int64
	successes    int64
	responseTime float64
}

func (b *backendCounters) add(r classifier.ModelResult) {
	b.requests++
	if r.Success {
		b.successes++
	}
	b.responseTime += r.ResponseTime
}

func (b backendCounters) summary() BackendSummary {
	s := BackendSummary{Requests: b.requests, Successes: b.successes}
	if b.requests > 0 {
		s.SuccessRate = classifier.Round(float64(b.successes)/float64(b.requests), 4)
		s.AverageResponseTime = classifier.Round(b.responseTime/float64(b.requests), 3)
	}
	return s
}

// Stats keeps in-memory counters over completed comparisons. Nothing is
// persisted; counters reset with the process.
type Stats struct {
	mu         sync.Mutex
	total      int64
	available  int64
	agreements int64
	winsA      int64
	winsB      int64
	modelA     backendCounters
	modelB     backendCounters
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{}
}

// Record folds one comparison response into the counters.
func (s *Stats) Record(resp *CompareResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.modelA.add(resp.ModelA)
	s.modelB.add(resp.ModelB)

	c := resp.Comparison
	if !c.Available {
		return
	}
	s.available++
	if c.Top1Agreement != nil && *c.Top1Agreement {
		s.agreements++
	}
	if c.Winner != nil {
		switch *c.Winner {
		case classifier.ModelA:
			s.winsA++
		case classifier.ModelB:
			s.winsB++
		}
	}
}

// Summary returns a consistent snapshot of the counters.
func (s *Stats) Summary() StatsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := StatsSummary{
		TotalComparisons:     s.total,
		ComparisonsAvailable: s.available,
		Top1Agreements:       s.agreements,
		WinsModelA:           s.winsA,
		WinsModelB:           s.winsB,
		ModelA:               s.modelA.summary(),
		ModelB:               s.modelB.summary(),
	}
	if s.available > 0 {
		summary.AgreementRate = classifier.Round(float64(s.agreements)/float64(s.available), 4)
	}
	return summary
}
