package analyzer

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// ResultGenerator produces an analysis result for one image. The mock
// implementation below is the only one today; a real model plugs in
// behind the same interface.
type ResultGenerator interface {
	Analyze(ctx context.Context, imagePath string) (*Result, error)
}

// MockAnalyzer draws synthetic species/damage/health data from the
// configured probability tables and sleeps a bounded random delay to
// exercise the polling contract under real asynchrony.
type MockAnalyzer struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockAnalyzer(cfg Config) *MockAnalyzer {
	return &MockAnalyzer{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (m *MockAnalyzer) Analyze(ctx context.Context, imagePath string) (*Result, error) {
	start := time.Now()

	if err := m.simulateDelay(ctx); err != nil {
		return nil, err
	}

	treeConfidence := m.uniform(m.cfg.TreeConfidenceMin, m.cfg.TreeConfidenceMax)
	damages := m.generateDamages()

	result := &Result{
		TreeType:           m.selectTreeType(),
		TreeTypeConfidence: round3(treeConfidence),
		DamagesDetected:    damages,
		OverallHealthScore: round3(m.healthScore(damages, treeConfidence)),
		ModelVersion:       m.cfg.ModelVersion,
		ProcessingTime:     time.Since(start).Seconds(),
	}

	return result, nil
}

func (m *MockAnalyzer) simulateDelay(ctx context.Context) error {
	delay := m.cfg.MinDelay
	if m.cfg.MaxDelay > m.cfg.MinDelay {
		delay += time.Duration(m.float64() * float64(m.cfg.MaxDelay-m.cfg.MinDelay))
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *MockAnalyzer) selectTreeType() TreeType {
	r := m.float64()
	cumulative := 0.0
	for treeType, probability := range m.cfg.TreeTypeProbabilities {
		cumulative += probability
		if r <= cumulative {
			return treeType
		}
	}
	return TreeUnknown
}

func (m *MockAnalyzer) generateDamages() []Damage {
	count := m.selectDamageCount()
	damages := make([]Damage, 0, count)
	seen := make(map[DamageType]bool, count)

	for range count {
		damageType := m.selectDamageType()
		if seen[damageType] {
			continue
		}
		seen[damageType] = true

		severity := m.selectSeverity()
		damages = append(damages, Damage{
			Type:            damageType,
			Severity:        severity,
			Confidence:      round3(m.uniform(m.cfg.DamageConfidenceMin, m.cfg.DamageConfidenceMax)),
			Description:     damageDescriptions[damageType],
			Recommendations: recommendationsFor(damageType, severity),
		})
	}

	return damages
}

func (m *MockAnalyzer) selectDamageCount() int {
	r := m.float64()
	cumulative := 0.0
	for count, probability := range m.cfg.DamageCountProbabilities {
		cumulative += probability
		if r <= cumulative {
			return count
		}
	}
	return 0
}

func (m *MockAnalyzer) selectDamageType() DamageType {
	total := 0.0
	for _, weight := range m.cfg.DamageTypeWeights {
		total += weight
	}

	r := m.float64() * total
	cumulative := 0.0
	for damageType, weight := range m.cfg.DamageTypeWeights {
		cumulative += weight
		if r <= cumulative {
			return damageType
		}
	}
	return DamageInsect
}

func (m *MockAnalyzer) selectSeverity() string {
	r := m.float64()
	cumulative := 0.0
	for severity, probability := range m.cfg.SeverityProbabilities {
		cumulative += probability
		if r <= cumulative {
			return severity
		}
	}
	return SeverityLow
}

// healthScore starts from the species confidence and degrades it per
// detected damage, clamped to [0, 1].
func (m *MockAnalyzer) healthScore(damages []Damage, treeConfidence float64) float64 {
	score := treeConfidence
	for _, damage := range damages {
		if modifier, ok := m.cfg.HealthScoreModifiers[damage.Severity]; ok {
			score *= modifier
		}
	}

	score *= m.uniform(0.9, 1.1)

	return min(max(score, 0.0), 1.0)
}

func recommendationsFor(damageType DamageType, severity string) []string {
	if bySeverity, ok := treatmentRecommendations[damageType]; ok {
		if recs, ok := bySeverity[severity]; ok {
			return recs
		}
	}
	return []string{"Consult with arborist"}
}

func (m *MockAnalyzer) uniform(lo, hi float64) float64 {
	return lo + m.float64()*(hi-lo)
}

func (m *MockAnalyzer) float64() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
