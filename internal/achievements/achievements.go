package achievements

// Stats is the snapshot every predicate is evaluated against.
type Stats struct {
	Points     int `json:"points"`
	TotalScans int `json:"total_scans"`
}

type Achievement struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Condition   func(Stats) bool `json:"-"`
}

// Status pairs an achievement with whether the current stats unlock it.
type Status struct {
	Achievement
	Unlocked bool `json:"unlocked"`
}

// List is evaluated in order. Unlocked state is never stored: it is always
// recomputed from the current stats, so a stats regression locks it again.
var List = []Achievement{
	{
		ID:          "first_scan",
		Name:        "First Step",
		Description: "You scanned your very first bottle!",
		Icon:        "Star",
		Condition:   func(s Stats) bool { return s.TotalScans >= 1 },
	},
	{
		ID:          "novice_recycler",
		Name:        "Novice Recycler",
		Description: "You recycled 10 bottles.",
		Icon:        "Award",
		Condition:   func(s Stats) bool { return s.TotalScans >= 10 },
	},
	{
		ID:          "point_collector",
		Name:        "Point Collector",
		Description: "You earned more than 100 points.",
		Icon:        "Zap",
		Condition:   func(s Stats) bool { return s.Points >= 100 },
	},
	{
		ID:          "dedicated_recycler",
		Name:        "Dedicated Recycler",
		Description: "You recycled 50 bottles. Keep it up!",
		Icon:        "Shield",
		Condition:   func(s Stats) bool { return s.TotalScans >= 50 },
	},
	{
		ID:          "points_hoarder",
		Name:        "Points Hoarder",
		Description: "You saved up 500 points!",
		Icon:        "Zap",
		Condition:   func(s Stats) bool { return s.Points >= 500 },
	},
}

// Evaluate returns the status of every achievement for s.
func Evaluate(s Stats) []Status {
	out := make([]Status, 0, len(List))
	for _, a := range List {
		out = append(out, Status{Achievement: a, Unlocked: a.Condition(s)})
	}
	return out
}

// NewlyUnlocked returns the achievements locked at before and unlocked at after.
func NewlyUnlocked(before, after Stats) []Achievement {
	var out []Achievement
	for _, a := range List {
		if !a.Condition(before) && a.Condition(after) {
			out = append(out, a)
		}
	}
	return out
}
