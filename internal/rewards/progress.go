package rewards

import "github.com/AnshRaj112/ecoscan-backend/internal/models"

// Progress is the balance's distance to the cheapest reward it cannot yet afford.
type Progress struct {
	Next      *models.Reward `json:"next,omitempty"`
	Remaining int            `json:"remaining"`
	Percent   float64        `json:"percent"`
}

// NextReward expects list ordered by ascending cost. Percent is 100 when every
// reward is affordable.
func NextReward(points int, list []models.Reward) Progress {
	for i := range list {
		if points < list[i].Cost {
			r := list[i]
			pct := 0.0
			if r.Cost > 0 && points > 0 {
				pct = float64(points) / float64(r.Cost) * 100
			}
			return Progress{Next: &r, Remaining: r.Cost - points, Percent: pct}
		}
	}
	return Progress{Percent: 100}
}
