package students

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
)

// HighPointsThreshold separates high performers from the rest. A record is a
// high performer when its points are strictly above it.
const HighPointsThreshold = 80

// Student is one upstream record. All fields arrive as strings.
type Student struct {
	ID     string `json:"id"`
	NIM    string `json:"nim"`
	Nama   string `json:"nama"`
	Kelas  string `json:"kelas"`
	Points string `json:"points"`
}

// Score parses the leading integer of Points, ignoring surrounding spaces and
// any trailing text, so "85", " 85" and "85.5" all give 85. It reports false
// when Points does not start with a number.
func (s Student) Score() (int, bool) {
	p := strings.TrimLeftFunc(s.Points, unicode.IsSpace)
	end := 0
	if end < len(p) && (p[end] == '-' || p[end] == '+') {
		end++
	}
	digits := end
	for end < len(p) && p[end] >= '0' && p[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(p[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Band grades a score for display.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
)

// BandFor returns the band for score: above 90, above 80, above 70 or below.
func BandFor(score int) Band {
	switch {
	case score > 90:
		return BandExcellent
	case score > 80:
		return BandGood
	case score > 70:
		return BandFair
	default:
		return BandPoor
	}
}

// Tab selects a subset of records.
type Tab string

const (
	TabAll        Tab = "all"
	TabHighPoints Tab = "highPoints"
	TabLowPoints  Tab = "lowPoints"
)

// ParseTab validates a tab name. An empty name selects TabAll.
func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case "", TabAll:
		return TabAll, nil
	case TabHighPoints, TabLowPoints:
		return Tab(s), nil
	default:
		return "", apperrors.InvalidInput("unknown tab " + strconv.Quote(s) + " (want all, highPoints or lowPoints)")
	}
}

// Filter returns the records matching query and tab. The query is a
// case-insensitive substring match on nama, nim or kelas. Records without a
// numeric score only appear under TabAll.
func Filter(records []Student, query string, tab Tab) []Student {
	query = strings.ToLower(query)
	out := make([]Student, 0, len(records))
	for _, r := range records {
		if query != "" &&
			!strings.Contains(strings.ToLower(r.Nama), query) &&
			!strings.Contains(strings.ToLower(r.NIM), query) &&
			!strings.Contains(strings.ToLower(r.Kelas), query) {
			continue
		}
		if tab != TabAll {
			score, ok := r.Score()
			if !ok {
				continue
			}
			high := score > HighPointsThreshold
			if (tab == TabHighPoints) != high {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Stats summarizes a record set.
type Stats struct {
	Total          int `json:"total"`
	HighPerformers int `json:"high_performers"`
	AveragePoints  int `json:"average_points"`
}

// Summarize computes Stats over records. The average is rounded half away
// from zero and only counts records with a numeric score; it is 0 when there
// are none.
func Summarize(records []Student) Stats {
	st := Stats{Total: len(records)}
	sum, scored := 0, 0
	for _, r := range records {
		score, ok := r.Score()
		if !ok {
			continue
		}
		sum += score
		scored++
		if score > HighPointsThreshold {
			st.HighPerformers++
		}
	}
	if scored > 0 {
		st.AveragePoints = int(math.Round(float64(sum) / float64(scored)))
	}
	return st
}
