package usecase

import (
	"math"
	"sort"
	"time"

	"mailscope-backend/internal/email/domain"
)

// ScoreConfig holds the importance score weights and normalization
// constants. Weights are validated to sum to 1 at config load.
type ScoreConfig struct {
	FrequencyWeight  float64
	RecencyWeight    float64
	EngagementWeight float64

	HalfLifeDays        float64
	ReferenceBodyLength float64
}

// ScoreDomains computes the importance score of every domain aggregate and
// sorts them. It is a pure function of its input: identical aggregates and
// the same instant always yield the identical ordered result.
//
//	score = w_f*frequency + w_r*recency + w_e*engagement, clamped to [0,1]
//
// Ties break on message count (higher first), then domain name ascending,
// so the ordering is total and deterministic.
func ScoreDomains(stats []*domain.DomainStat, now time.Time, cfg ScoreConfig) []*domain.DomainStat {
	maxCount := 0
	for _, d := range stats {
		if d.MessageCount > maxCount {
			maxCount = d.MessageCount
		}
	}

	for _, d := range stats {
		frequency := 0.0
		if maxCount > 0 {
			frequency = float64(d.MessageCount) / float64(maxCount)
		}

		days := now.Sub(d.LastReceivedAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		recency := math.Exp(-math.Ln2 * days / cfg.HalfLifeDays)

		engagement := math.Min(d.AvgBodyLength/cfg.ReferenceBodyLength, 1.0)

		score := cfg.FrequencyWeight*frequency +
			cfg.RecencyWeight*recency +
			cfg.EngagementWeight*engagement
		d.ImportanceScore = clamp01(score)
	}

	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.ImportanceScore != b.ImportanceScore {
			return a.ImportanceScore > b.ImportanceScore
		}
		if a.MessageCount != b.MessageCount {
			return a.MessageCount > b.MessageCount
		}
		return a.Name < b.Name
	})

	return stats
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
