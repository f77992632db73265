package form

import "strings"

// Tally counts verdicts over a set of items.
type Tally struct {
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	NotApplicable int `json:"notApplicable"`
	Unanswered    int `json:"unanswered"`
}

// Count tallies the verdicts of items.
func Count(items []Item) Tally {
	var t Tally
	for _, it := range items {
		t.add(it.Verdict)
	}
	return t
}

func (t *Tally) add(v Verdict) {
	switch v {
	case Approved:
		t.Approved++
	case Rejected:
		t.Rejected++
	case NotApplicable:
		t.NotApplicable++
	default:
		t.Unanswered++
	}
}

func (t Tally) Total() int {
	return t.Approved + t.Rejected + t.NotApplicable + t.Unanswered
}

func (t Tally) Answered() int {
	return t.Total() - t.Unanswered
}

// Plus adds two tallies.
func (t Tally) Plus(o Tally) Tally {
	return Tally{
		Approved:      t.Approved + o.Approved,
		Rejected:      t.Rejected + o.Rejected,
		NotApplicable: t.NotApplicable + o.NotApplicable,
		Unanswered:    t.Unanswered + o.Unanswered,
	}
}

// SectionScore is the progress and approval state of one section.
type SectionScore struct {
	Section Section `json:"section"`
	// Active is false for a gated section whose gate is not yes.
	Active      bool    `json:"active"`
	GatePending bool    `json:"gatePending"`
	Tally       Tally   `json:"tally"`
	Answered    int     `json:"answered"`
	Required    int     `json:"required"`
	Completion  float64 `json:"completion"`
	Approved    bool    `json:"approved"`
}

// Outcome is the final verdict of an inspection.
type Outcome string

const (
	OutcomeApproved   Outcome = "approved"
	OutcomeReproved   Outcome = "reproved"
	OutcomeIncomplete Outcome = "incomplete"
)

func (o Outcome) Label() string {
	switch o {
	case OutcomeApproved:
		return "APPROVED"
	case OutcomeReproved:
		return "REPROVED"
	}
	return "INCOMPLETE"
}

// Summary aggregates the checklist sections of one inspection.
type Summary struct {
	Sections   []SectionScore `json:"sections"`
	Tally      Tally          `json:"tally"`
	Answered   int            `json:"answered"`
	Required   int            `json:"required"`
	Completion float64        `json:"completion"`
	Approved   bool           `json:"approved"`
	Outcome    Outcome        `json:"outcome"`
}

// Section returns the score of sec.
func (s Summary) Section(sec Section) SectionScore {
	for _, sc := range s.Sections {
		if sc.Section == sec {
			return sc
		}
	}
	return SectionScore{Section: sec}
}

// ScoreSection computes the score of one section.
//
// Completion is always divided by the declared item count, never by what has
// been answered so far. A gated section whose gate is still open contributes
// nothing until the gate is answered; a gate answered no counts every item as
// not applicable.
func ScoreSection(s Sheet, sec Section) SectionScore {
	sc := SectionScore{Section: sec, Active: true}
	switch sec {
	case Identification:
		fields := s.Identification.Fields()
		sc.Required = len(fields)
		for _, f := range fields {
			if strings.TrimSpace(f.Value) != "" {
				sc.Answered++
			}
		}
		sc.Approved = sc.Answered == sc.Required
		sc.Completion = ratio(sc.Answered, sc.Required)
		return sc
	case Conclusion:
		sc.Completion = 1
		sc.Approved = true
		return sc
	}

	items := ItemsOf(s, sec)
	switch GateOfSection(s, sec) {
	case GateUnanswered:
		sc.Active = false
		sc.GatePending = true
		return sc
	case GateNo:
		sc.Active = false
		sc.Tally = Tally{NotApplicable: len(items)}
	default:
		sc.Tally = Count(items)
	}
	sc.Required = len(items)
	sc.Answered = sc.Tally.Answered()
	sc.Completion = ratio(sc.Answered, sc.Required)
	sc.Approved = sc.Tally.Rejected == 0 && sc.Tally.Unanswered == 0
	return sc
}

// Evaluate scores every section and derives the overall outcome. Both the
// wizard progress bars and the PDF report use this function, so they can
// never disagree.
func Evaluate(s Sheet) Summary {
	var sum Summary
	allApproved := true
	for _, sec := range sectionOrder {
		sc := ScoreSection(s, sec)
		sum.Sections = append(sum.Sections, sc)
		if !sec.Checklist() {
			continue
		}
		sum.Tally = sum.Tally.Plus(sc.Tally)
		sum.Answered += sc.Answered
		sum.Required += sc.Required
		if sc.GatePending || !sc.Approved {
			allApproved = false
		}
	}
	sum.Completion = ratio(sum.Answered, sum.Required)
	sum.Approved = allApproved
	switch {
	case sum.Tally.Rejected > 0:
		sum.Outcome = OutcomeReproved
	case allApproved:
		sum.Outcome = OutcomeApproved
	default:
		sum.Outcome = OutcomeIncomplete
	}
	return sum
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
