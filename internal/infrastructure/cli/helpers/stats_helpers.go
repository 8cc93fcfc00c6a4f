package helpers

import (
	"sort"

	"github.com/doeshing/gadget-go/internal/domain"
)

// CommandStatistic is how often one command text was sent.
type CommandStatistic struct {
	Command string
	Count   int
}

// HistoryStats summarises a slice of commands.
type HistoryStats struct {
	Total       int
	Succeeded   int
	Failed      int
	Pending     int
	ByTransport map[domain.Transport]int
	Top         []CommandStatistic
}

// AnalyzeCommands counts outcomes and transports, grouping texts by cache key.
func AnalyzeCommands(commands []domain.Command, topN int) HistoryStats {
	stats := HistoryStats{
		Total:       len(commands),
		ByTransport: make(map[domain.Transport]int),
	}
	freq := make(map[string]int)
	for _, cmd := range commands {
		switch cmd.Status {
		case domain.StatusSuccess:
			stats.Succeeded++
		case domain.StatusFailed:
			stats.Failed++
		default:
			stats.Pending++
		}
		if cmd.Transport != domain.TransportNone {
			stats.ByTransport[cmd.Transport]++
		}
		freq[domain.CacheKey(cmd.Text)]++
	}
	stats.Top = CalculateTopCommands(freq, topN)
	return stats
}

// CalculateTopCommands returns the most frequent commands, ties broken by name.
// limit <= 0 returns all of them.
func CalculateTopCommands(frequency map[string]int, limit int) []CommandStatistic {
	stats := make([]CommandStatistic, 0, len(frequency))
	for cmd, count := range frequency {
		stats = append(stats, CommandStatistic{Command: cmd, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Command < stats[j].Command
		}
		return stats[i].Count > stats[j].Count
	})
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// SuccessRate is the share of resolved commands that succeeded, in percent.
func (s HistoryStats) SuccessRate() float64 {
	resolved := s.Succeeded + s.Failed
	if resolved == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(resolved) * 100
}
