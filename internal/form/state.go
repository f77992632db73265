package form

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownField    = errors.New("form: unknown identification field")
	ErrUnknownItem     = errors.New("form: unknown checklist item")
	ErrNotGated        = errors.New("form: section has no gate")
	ErrSectionInactive = errors.New("form: section does not apply to this inspection")
	ErrInvalidVerdict  = errors.New("form: invalid verdict")
	ErrNoRemarks       = errors.New("form: section has no remarks field")
)

// RequestInfo is the part of an inspection request the form needs to seed its
// defaults and to label the report.
type RequestInfo struct {
	ID        uint      `json:"id"`
	Company   string    `json:"company"`
	Region    string    `json:"region"`
	SiteCode  string    `json:"siteCode"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sheet holds every answer that is persisted with a submission.
type Sheet struct {
	Identification IdentificationSection    `json:"identificacao"`
	Basic          BasicPPESection          `json:"epi_basico"`
	Aerial         AerialPPESection         `json:"epi_altura"`
	Electrical     ElectricalPPESection     `json:"epi_eletrico"`
	General        GeneralInspectionSection `json:"inspecao_geral"`
	Conclusion     ConclusionSection        `json:"conclusao"`
}

// State is the working copy of one inspection while it is being filled in.
// It is a value: Apply and Reduce return a new State and leave the receiver
// untouched, so callers can keep the previous version around.
type State struct {
	RequestID uint `json:"requestId"`
	Sheet
	// Photos are keyed by PhotoSlot.String(). A slot's list is always
	// replaced as a whole, never appended to in place.
	Photos map[string][]Photo `json:"fotos,omitempty"`
}

// New seeds a blank form for req. Every verdict and gate starts unanswered.
func New(req RequestInfo) State {
	s := State{RequestID: req.ID}
	s.Identification.Region = req.Region
	return s
}

// Patch is a single user edit. The set of patches is closed; see the Set*
// types below.
type Patch interface {
	apply(s *State) error
}

// Apply merges p into a copy of s. On error the original state is returned
// unchanged.
func (s State) Apply(p Patch) (State, error) {
	next := s
	if err := p.apply(&next); err != nil {
		return s, err
	}
	return next, nil
}

// ApplyAll applies patches in order and stops at the first failure.
func (s State) ApplyAll(patches ...Patch) (State, error) {
	cur := s
	for i, p := range patches {
		next, err := cur.Apply(p)
		if err != nil {
			return s, fmt.Errorf("patch %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

// SetIdentification changes one identification field. The CPF is passed
// through FormatCPF; every other value is stored exactly as given.
type SetIdentification struct {
	Field IdentField
	Value string
}

func (p SetIdentification) apply(s *State) error {
	switch p.Field {
	case FieldFullName:
		s.Identification.FullName = p.Value
	case FieldNationalID:
		s.Identification.NationalID = FormatCPF(p.Value)
	case FieldRole:
		s.Identification.Role = p.Value
	case FieldRegion:
		s.Identification.Region = p.Value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, p.Field)
	}
	return nil
}

// SetVerdict answers one checklist item.
type SetVerdict struct {
	Item    ItemKey
	Verdict Verdict
}

func (p SetVerdict) apply(s *State) error {
	if p.Verdict > NotApplicable {
		return fmt.Errorf("%w: %d", ErrInvalidVerdict, p.Verdict)
	}
	sec, ok := SectionOfItem(p.Item)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, p.Item)
	}
	if GateOfSection(s.Sheet, sec) == GateNo {
		return fmt.Errorf("%w: %s", ErrSectionInactive, sec)
	}
	switch sec {
	case BasicPPE:
		s.Basic.set(p.Item, p.Verdict)
	case AerialPPE:
		s.Aerial.set(p.Item, p.Verdict)
	case ElectricalPPE:
		s.Electrical.set(p.Item, p.Verdict)
	case GeneralInspection:
		s.General.set(p.Item, p.Verdict)
	}
	return nil
}

// SetGate answers the yes/no question of a conditional section.
//
// Answering no marks every item of the section not applicable and clears its
// remarks and photos. Answering yes after anything else turns not-applicable leftovers
// back into unanswered so the items have to be checked again.
type SetGate struct {
	Section Section
	Gate    Gate
}

func (p SetGate) apply(s *State) error {
	if p.Gate > GateNo {
		return fmt.Errorf("form: invalid gate %d", p.Gate)
	}
	switch p.Section {
	case AerialPPE:
		if s.Aerial.Gate == p.Gate {
			return nil
		}
		s.Aerial.Gate = p.Gate
		switch p.Gate {
		case GateNo:
			s.Aerial = AerialPPESection{Gate: GateNo}
			s.dropPhotos(AerialPPE)
			for _, it := range s.Aerial.Items() {
				s.Aerial.set(it.Key, NotApplicable)
			}
		case GateYes:
			for _, it := range s.Aerial.Items() {
				if it.Verdict == NotApplicable {
					s.Aerial.set(it.Key, Unanswered)
				}
			}
		}
	case ElectricalPPE:
		if s.Electrical.Gate == p.Gate {
			return nil
		}
		s.Electrical.Gate = p.Gate
		switch p.Gate {
		case GateNo:
			s.Electrical = ElectricalPPESection{Gate: GateNo}
			s.dropPhotos(ElectricalPPE)
			for _, it := range s.Electrical.Items() {
				s.Electrical.set(it.Key, NotApplicable)
			}
		case GateYes:
			for _, it := range s.Electrical.Items() {
				if it.Verdict == NotApplicable {
					s.Electrical.set(it.Key, Unanswered)
				}
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrNotGated, p.Section)
	}
	return nil
}

// SetRemarks replaces the free text of a section.
type SetRemarks struct {
	Section Section
	Text    string
}

func (p SetRemarks) apply(s *State) error {
	if GateOfSection(s.Sheet, p.Section) == GateNo {
		return fmt.Errorf("%w: %s", ErrSectionInactive, p.Section)
	}
	switch p.Section {
	case BasicPPE:
		s.Basic.Remarks = p.Text
	case AerialPPE:
		s.Aerial.Remarks = p.Text
	case ElectricalPPE:
		s.Electrical.Remarks = p.Text
	case GeneralInspection:
		s.General.Remarks = p.Text
	case Conclusion:
		s.Conclusion.Remarks = p.Text
	default:
		return fmt.Errorf("%w: %s", ErrNoRemarks, p.Section)
	}
	return nil
}

// SetDeclaration ticks or unticks the responsibility declaration of the
// general inspection.
type SetDeclaration struct {
	Accepted bool
}

func (p SetDeclaration) apply(s *State) error {
	s.General.Declaration = p.Accepted
	return nil
}

// Answer is a finalized submission: the sheet plus the photos that finished
// uploading.
type Answer struct {
	RequestID uint `json:"requestId"`
	Sheet
	Photos []PhotoRef `json:"fotos"`
}

// Finalize builds the submission payload. Photos that did not finish
// uploading are left out and reported as warnings.
func (s State) Finalize() (Answer, []string) {
	a := Answer{RequestID: s.RequestID, Sheet: s.Sheet}
	var warnings []string
	for _, p := range s.PhotoList() {
		if GateOfSection(s.Sheet, p.Slot.Section) == GateNo {
			continue
		}
		switch p.Status {
		case PhotoStatusUploaded:
			a.Photos = append(a.Photos, p.Ref())
		case PhotoStatusError:
			warnings = append(warnings, fmt.Sprintf("photo %s failed to upload and was not included: %s", p.FileName, p.Error))
		default:
			warnings = append(warnings, fmt.Sprintf("photo %s is still %s and was not included", p.FileName, p.Status))
		}
	}
	return a, warnings
}
