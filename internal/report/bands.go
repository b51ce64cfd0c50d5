package report

import "github.com/fyrsmithlabs/lessons/internal/lesson"

// Band is a named score range; a score belongs to the first band whose Min
// it reaches.
type Band struct {
	Name string
	Min  int
}

// QualityBands are ordered from best to worst.
var QualityBands = []Band{
	{"excellent", 90},
	{"good", 80},
	{"fair", 70},
	{"poor", 60},
	{"failing", 0},
}

// ImpactBands are ordered from highest to lowest.
var ImpactBands = []Band{
	{"high", 80},
	{"medium", 60},
	{"low", 40},
	{"minimal", 0},
}

// BandsFor returns the bands of a kind, or nil for categorization.
func BandsFor(kind lesson.Kind) []Band {
	switch kind {
	case lesson.KindQuality:
		return QualityBands
	case lesson.KindImpact:
		return ImpactBands
	default:
		return nil
	}
}

// BandOf returns the name of the band containing score.
func BandOf(bands []Band, score int) string {
	for _, b := range bands {
		if score >= b.Min {
			return b.Name
		}
	}
	if len(bands) == 0 {
		return ""
	}
	return bands[len(bands)-1].Name
}
