package progress

import "learnstack/internal/models"

var rankThresholds = []struct {
	level  models.RankLevel
	points int
}{
	{models.RankDiamond, 10000},
	{models.RankPlatinum, 5000},
	{models.RankGold, 2000},
	{models.RankSilver, 500},
	{models.RankBronze, 0},
}

// RankForPoints maps rank points to a level
func RankForPoints(points int) models.RankLevel {
	for _, t := range rankThresholds {
		if points >= t.points {
			return t.level
		}
	}
	return models.RankBronze
}
