package form

import (
	"fmt"
	"strings"
)

// Violation is one reason a section cannot be left yet.
type Violation struct {
	Section Section `json:"section"`
	Field   string  `json:"field,omitempty"`
	Message string  `json:"message"`
}

func (v Violation) String() string {
	return v.Message
}

// Validate returns the violations of one section. An empty result means the
// wizard may move past it.
func Validate(s Sheet, sec Section) []Violation {
	switch sec {
	case Identification:
		return validateIdentification(s.Identification)
	case BasicPPE:
		return validateItems(sec, s.Basic.Items())
	case AerialPPE:
		return validateGated(sec, s.Aerial.Gate, s.Aerial.Items(), "must state whether work at height occurs")
	case ElectricalPPE:
		return validateGated(sec, s.Electrical.Gate, s.Electrical.Items(), "must state whether electrical work occurs")
	case GeneralInspection:
		out := validateItems(sec, s.General.Items())
		if !s.General.Declaration {
			out = append(out, Violation{
				Section: sec,
				Field:   string(KeyDeclaration),
				Message: "the responsibility declaration must be accepted",
			})
		}
		return out
	case Conclusion:
		return nil
	}
	return []Violation{{Section: sec, Message: fmt.Sprintf("unknown section %s", sec)}}
}

// ValidateAll checks every section in wizard order and returns the first
// failing section together with all violations found.
func ValidateAll(s Sheet) (first Section, violations []Violation, ok bool) {
	ok = true
	for _, sec := range sectionOrder {
		v := Validate(s, sec)
		if len(v) == 0 {
			continue
		}
		if ok {
			first = sec
			ok = false
		}
		violations = append(violations, v...)
	}
	return first, violations, ok
}

func validateIdentification(id IdentificationSection) []Violation {
	var out []Violation
	for _, f := range id.Fields() {
		if strings.TrimSpace(f.Value) == "" {
			out = append(out, Violation{
				Section: Identification,
				Field:   string(f.Field),
				Message: fmt.Sprintf("%s is required", f.Field.Label()),
			})
		}
	}
	return out
}

// validateItems reports every unanswered item of a section in a single
// violation so the user sees one actionable line per section.
func validateItems(sec Section, items []Item) []Violation {
	var missing []string
	for _, it := range items {
		if !it.Verdict.Answered() {
			missing = append(missing, it.Label)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []Violation{{
		Section: sec,
		Message: fmt.Sprintf("answer every item of %s: %s", sec.Title(), strings.Join(missing, ", ")),
	}}
}

func validateGated(sec Section, gate Gate, items []Item, question string) []Violation {
	switch gate {
	case GateUnanswered:
		return []Violation{{Section: sec, Field: gateKey(sec), Message: question}}
	case GateNo:
		return nil
	}
	return validateItems(sec, items)
}

func gateKey(sec Section) string {
	switch sec {
	case AerialPPE:
		return string(KeyWorkAtHeight)
	case ElectricalPPE:
		return string(KeyElectricalWork)
	}
	return ""
}
