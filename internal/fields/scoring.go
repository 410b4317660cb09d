package fields

// proximityScore rates a value against an anchor span. Values after the
// anchor (reading order, also where the number sits on this form's rows)
// score 1 - d/max; values before it score half that. Anything past max scores 0.
func proximityScore(anchorStart, anchorEnd int, c Candidate, max int) float64 {
	if c.Start >= anchorEnd {
		d := c.Start - anchorEnd
		if d > max {
			return 0
		}
		return 1 - float64(d)/float64(max)
	}
	if c.End <= anchorStart {
		d := anchorStart - c.End
		if d > max {
			return 0
		}
		return (1 - float64(d)/float64(max)) * 0.5
	}
	// overlaps the anchor itself, e.g. the box number in "משבצת 42"
	return 0
}

type scored struct {
	Candidate
	Score float64
}

// best returns the highest scoring candidate. Ties keep the earliest one.
func best(all []scored) (scored, bool) {
	var top scored
	found := false
	for _, s := range all {
		if s.Score <= 0 {
			continue
		}
		if !found || s.Score > top.Score {
			top, found = s, true
		}
	}
	return top, found
}
