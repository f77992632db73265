package form

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Verdict is the answer given to one checklist item. The zero value means the
// item has not been answered yet.
type Verdict uint8

const (
	Unanswered Verdict = iota
	Approved
	Rejected
	NotApplicable
)

func (v Verdict) String() string {
	switch v {
	case Unanswered:
		return "unanswered"
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case NotApplicable:
		return "not_applicable"
	}
	return fmt.Sprintf("verdict(%d)", uint8(v))
}

// Answered reports whether the item holds any of the three real verdicts.
func (v Verdict) Answered() bool {
	return v == Approved || v == Rejected || v == NotApplicable
}

// Passes reports whether the verdict counts towards approval.
func (v Verdict) Passes() bool {
	return v == Approved || v == NotApplicable
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	if v == Unanswered {
		return []byte("null"), nil
	}
	if v > NotApplicable {
		return nil, fmt.Errorf("form: cannot marshal %s", v)
	}
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = Unanswered
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("form: verdict must be a string or null: %w", err)
	}
	parsed, err := ParseVerdict(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVerdict accepts the wire names produced by String.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "", "unanswered":
		return Unanswered, nil
	case "approved":
		return Approved, nil
	case "rejected":
		return Rejected, nil
	case "not_applicable":
		return NotApplicable, nil
	}
	return Unanswered, fmt.Errorf("form: unknown verdict %q", s)
}

// Gate is the yes/no question that switches a conditional section on or off.
type Gate uint8

const (
	GateUnanswered Gate = iota
	GateYes
	GateNo
)

func (g Gate) String() string {
	switch g {
	case GateYes:
		return "yes"
	case GateNo:
		return "no"
	}
	return "unanswered"
}

func (g Gate) MarshalJSON() ([]byte, error) {
	switch g {
	case GateYes:
		return []byte("true"), nil
	case GateNo:
		return []byte("false"), nil
	}
	return []byte("null"), nil
}

func (g *Gate) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*g = GateUnanswered
	case "true":
		*g = GateYes
	case "false":
		*g = GateNo
	default:
		return fmt.Errorf("form: gate must be true, false or null, got %s", data)
	}
	return nil
}

// GateOf converts a boolean answer into a Gate.
func GateOf(yes bool) Gate {
	if yes {
		return GateYes
	}
	return GateNo
}
