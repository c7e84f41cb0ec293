package usecase

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailscope-backend/internal/email/domain"
)

func testScoreConfig() ScoreConfig {
	return ScoreConfig{
		FrequencyWeight:     0.4,
		RecencyWeight:       0.35,
		EngagementWeight:    0.25,
		HalfLifeDays:        14,
		ReferenceBodyLength: 2000,
	}
}

func TestScoreDomains(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("scores stay within zero and one", func(t *testing.T) {
		stats := []*domain.DomainStat{
			{Name: "a.com", MessageCount: 1000, LastReceivedAt: now, AvgBodyLength: 1e9},
			{Name: "b.com", MessageCount: 1, LastReceivedAt: now.AddDate(-10, 0, 0), AvgBodyLength: 0},
			{Name: "c.com", MessageCount: 3, LastReceivedAt: now.Add(time.Hour), AvgBodyLength: 500},
		}
		for _, d := range ScoreDomains(stats, now, testScoreConfig()) {
			assert.GreaterOrEqual(t, d.ImportanceScore, 0.0, d.Name)
			assert.LessOrEqual(t, d.ImportanceScore, 1.0, d.Name)
		}
	})

	t.Run("max-count domain gets full frequency and just-received full recency", func(t *testing.T) {
		stats := []*domain.DomainStat{
			{Name: "top.com", MessageCount: 10, LastReceivedAt: now, AvgBodyLength: 2000},
		}
		scored := ScoreDomains(stats, now, testScoreConfig())
		// frequency=1, recency=1, engagement=1 -> weights sum to 1.
		assert.InDelta(t, 1.0, scored[0].ImportanceScore, 1e-9)
	})

	t.Run("recency halves per half-life", func(t *testing.T) {
		cfg := testScoreConfig()
		cfg.FrequencyWeight = 0
		cfg.EngagementWeight = 0
		cfg.RecencyWeight = 1

		stats := []*domain.DomainStat{
			{Name: "old.com", MessageCount: 1, LastReceivedAt: now.AddDate(0, 0, -14)},
		}
		scored := ScoreDomains(stats, now, cfg)
		assert.InDelta(t, 0.5, scored[0].ImportanceScore, 1e-9)
	})

	t.Run("busy recent domain outranks stale singleton", func(t *testing.T) {
		stats := []*domain.DomainStat{
			{Name: "stale.com", MessageCount: 1, LastReceivedAt: now.AddDate(0, 0, -60), AvgBodyLength: 1000},
			{Name: "busy.com", MessageCount: 10, LastReceivedAt: now, AvgBodyLength: 1000},
		}
		scored := ScoreDomains(stats, now, testScoreConfig())
		require.Equal(t, "busy.com", scored[0].Name)
		assert.Greater(t, scored[0].ImportanceScore, scored[1].ImportanceScore)
	})

	t.Run("ties break on count then name", func(t *testing.T) {
		cfg := testScoreConfig()
		// Zero every weight so all scores tie at 0.
		cfg.FrequencyWeight = 0
		cfg.RecencyWeight = 0
		cfg.EngagementWeight = 1

		long := now.AddDate(0, 0, -1)
		stats := []*domain.DomainStat{
			{Name: "zeta.com", MessageCount: 2, LastReceivedAt: long},
			{Name: "alpha.com", MessageCount: 2, LastReceivedAt: long},
			{Name: "mid.com", MessageCount: 5, LastReceivedAt: long},
		}
		scored := ScoreDomains(stats, now, cfg)
		assert.Equal(t, []string{"mid.com", "alpha.com", "zeta.com"},
			[]string{scored[0].Name, scored[1].Name, scored[2].Name})
	})

	t.Run("deterministic over shuffled input", func(t *testing.T) {
		build := func(order []int) []*domain.DomainStat {
			base := []*domain.DomainStat{
				{Name: "a.com", MessageCount: 4, LastReceivedAt: now.AddDate(0, 0, -2), AvgBodyLength: 900},
				{Name: "b.com", MessageCount: 9, LastReceivedAt: now.AddDate(0, 0, -5), AvgBodyLength: 300},
				{Name: "c.com", MessageCount: 9, LastReceivedAt: now.AddDate(0, 0, -5), AvgBodyLength: 300},
			}
			out := make([]*domain.DomainStat, len(order))
			for i, idx := range order {
				clone := *base[idx]
				out[i] = &clone
			}
			return out
		}

		first := ScoreDomains(build([]int{0, 1, 2}), now, testScoreConfig())
		second := ScoreDomains(build([]int{2, 0, 1}), now, testScoreConfig())

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].Name, second[i].Name, fmt.Sprintf("position %d", i))
			assert.True(t, math.Abs(first[i].ImportanceScore-second[i].ImportanceScore) < 1e-12)
		}
	})
}
