package leaderboard

import (
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEAGUE CUTOFFS
// Лиги присваиваются по доле позиции в общей популяции: верхний 1% - master,
// следующие 4% - diamond и так далее до bronze. Маленькие популяции
// обрабатываются через минимальные квоты, чтобы топ-1 всегда был master.
// ══════════════════════════════════════════════════════════════════════════════

// leagueCutoff описывает верхнюю долю популяции для лиги.
type leagueCutoff struct {
	league shared.League

	// percentile - накопленная доля популяции (процент), попадающая
	// в эту лигу или выше.
	percentile int
}

// Пороги от высшей лиги к низшей; bronze - всё остальное.
var leagueCutoffs = []leagueCutoff{
	{shared.LeagueMaster, 1},
	{shared.LeagueDiamond, 5},
	{shared.LeaguePlatinum, 15},
	{shared.LeagueGold, 35},
	{shared.LeagueSilver, 65},
}

// LeagueForRank возвращает лигу для позиции rank в популяции из
// population участников. Невалидный ранг или пустая популяция
// дают отсутствие лиги.
func LeagueForRank(rank shared.Rank, population int) shared.League {
	if !rank.IsValid() || population <= 0 || rank.Int() > population {
		return shared.LeagueNone
	}

	for i, cutoff := range leagueCutoffs {
		quota := population * cutoff.percentile / 100
		// Минимальная квота: i-я сверху лига вмещает хотя бы i+1 позиций.
		if quota < i+1 {
			quota = i + 1
		}
		if rank.Int() <= quota {
			return cutoff.league
		}
	}
	return shared.LeagueBronze
}
