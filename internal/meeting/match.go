package meeting

import (
	"sort"
	"strings"
	"time"

	"github.com/xrash/smetrics"
)

// nameSimilarityThreshold is the Jaro-Winkler score above which two attendee
// names are considered the same person. Tuned for chat-typed names, where
// "Jon Smith" must still find "John Smith".
const nameSimilarityThreshold = 0.84

// timeTieEpsilon bounds how close two candidates may sit to the requested
// time before the match is declared ambiguous instead of picking one.
const timeTieEpsilon = time.Minute

// matchCancellation selects the confirmed meeting a cancellation request
// refers to, or fails with *NotFoundError / *AmbiguousMatchError.
func matchCancellation(confirmed []*Meeting, req CancelRequest) (*Meeting, error) {
	var matches []*Meeting
	for _, m := range confirmed {
		if namesMatch(m.Attendee.Name, req.AttendeeName) {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil, &NotFoundError{Query: req.AttendeeName}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	if req.Around.IsZero() {
		return nil, &AmbiguousMatchError{Candidates: matches}
	}

	// Without a clock time, several meetings on the requested date are
	// indistinguishable; refuse to guess between them.
	if !req.ExplicitTime {
		sameDay := onDate(matches, req.Around)
		switch len(sameDay) {
		case 0:
			// Fall through to nearest-by-time across all matches.
		case 1:
			return sameDay[0], nil
		default:
			return nil, &AmbiguousMatchError{Candidates: sameDay}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return distance(matches[i].Start, req.Around) < distance(matches[j].Start, req.Around)
	})
	if distance(matches[1].Start, req.Around)-distance(matches[0].Start, req.Around) < timeTieEpsilon {
		return nil, &AmbiguousMatchError{Candidates: matches[:2]}
	}
	return matches[0], nil
}

// namesMatch compares attendee names with Jaro-Winkler similarity, falling
// back to token containment so "John" still matches "John Smith".
func namesMatch(candidate, query string) bool {
	c := strings.ToLower(strings.TrimSpace(candidate))
	q := strings.ToLower(strings.TrimSpace(query))
	if c == "" || q == "" {
		return false
	}
	if smetrics.JaroWinkler(c, q, 0.7, 4) >= nameSimilarityThreshold {
		return true
	}
	return tokensContained(strings.Fields(q), strings.Fields(c))
}

// tokensContained reports whether every query token appears among the
// candidate tokens, allowing minor misspellings per token.
func tokensContained(query, candidate []string) bool {
	if len(query) == 0 {
		return false
	}
	for _, qt := range query {
		found := false
		for _, ct := range candidate {
			if qt == ct || smetrics.JaroWinkler(qt, ct, 0.7, 4) >= nameSimilarityThreshold {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func onDate(meetings []*Meeting, around time.Time) []*Meeting {
	var out []*Meeting
	y, mo, d := around.Date()
	for _, m := range meetings {
		my, mmo, md := m.Start.In(around.Location()).Date()
		if my == y && mmo == mo && md == d {
			out = append(out, m)
		}
	}
	return out
}

func distance(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
