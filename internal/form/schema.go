package form

import "fmt"

// Section is one step of the inspection form. The order of the constants is
// the order the wizard walks through them.
type Section uint8

const (
	Identification Section = iota
	BasicPPE
	AerialPPE
	ElectricalPPE
	GeneralInspection
	Conclusion
)

var sectionOrder = []Section{Identification, BasicPPE, AerialPPE, ElectricalPPE, GeneralInspection, Conclusion}

// Sections returns every section in wizard order.
func Sections() []Section {
	out := make([]Section, len(sectionOrder))
	copy(out, sectionOrder)
	return out
}

// ChecklistSections returns the sections that hold verdict items.
func ChecklistSections() []Section {
	return []Section{BasicPPE, AerialPPE, ElectricalPPE, GeneralInspection}
}

func (s Section) String() string {
	switch s {
	case Identification:
		return "identificacao"
	case BasicPPE:
		return "epi_basico"
	case AerialPPE:
		return "epi_altura"
	case ElectricalPPE:
		return "epi_eletrico"
	case GeneralInspection:
		return "inspecao_geral"
	case Conclusion:
		return "conclusao"
	}
	return fmt.Sprintf("section(%d)", uint8(s))
}

// Title is the human readable heading used by the wizard and the report.
func (s Section) Title() string {
	switch s {
	case Identification:
		return "Identification"
	case BasicPPE:
		return "Basic PPE"
	case AerialPPE:
		return "Work at height PPE"
	case ElectricalPPE:
		return "Electrical work PPE"
	case GeneralInspection:
		return "General inspection"
	case Conclusion:
		return "Conclusion"
	}
	return s.String()
}

// Gated reports whether a yes/no question decides if the section applies.
func (s Section) Gated() bool {
	return s == AerialPPE || s == ElectricalPPE
}

// Checklist reports whether the section holds verdict items.
func (s Section) Checklist() bool {
	return s >= BasicPPE && s <= GeneralInspection
}

func (s Section) valid() bool {
	return s <= Conclusion
}

// ParseSection maps a wire name back to its Section.
func ParseSection(name string) (Section, error) {
	for _, s := range sectionOrder {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("form: unknown section %q", name)
}

func (s Section) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("form: unknown section %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Section) UnmarshalText(text []byte) error {
	parsed, err := ParseSection(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ItemKey is the stable wire name of a checklist item or gate. These names are
// the persistence contract and must not change.
type ItemKey string

const (
	KeyHelmet            ItemKey = "capacete"
	KeySafetyGlasses     ItemKey = "oculos_protecao"
	KeyHearingProtection ItemKey = "protetor_auricular"
	KeyGloves            ItemKey = "luvas"
	KeySafetyBoots       ItemKey = "botina"
	KeyUniform           ItemKey = "uniforme"
	KeySunscreen         ItemKey = "protetor_solar"
	KeyReflectiveVest    ItemKey = "colete_refletivo"

	KeyWorkAtHeight ItemKey = "trabalho_altura"
	KeyHarness      ItemKey = "cinto_paraquedista"
	KeyLanyard      ItemKey = "talabarte"
	KeyFallArrester ItemKey = "trava_quedas"
	KeyChinStrap    ItemKey = "capacete_jugular"

	KeyElectricalWork   ItemKey = "trabalho_eletrico"
	KeyInsulatingGloves ItemKey = "luvas_isolantes"
	KeyFlameResistant   ItemKey = "vestimenta_antichama"
	KeyVoltageDetector  ItemKey = "detector_tensao"

	KeyGoodCondition    ItemKey = "epi_bom_estado"
	KeyValidCertificate ItemKey = "ca_valido"
	KeyTrainingUpToDate ItemKey = "treinamento_em_dia"
	KeyHygiene          ItemKey = "higienizacao"
	KeyDeclaration      ItemKey = "declaracao_responsabilidade"
)

// Item is one row of a checklist section.
type Item struct {
	Key     ItemKey `json:"key"`
	Label   string  `json:"label"`
	Verdict Verdict `json:"verdict"`
}

// BasicPPESection items apply to every inspection.
type BasicPPESection struct {
	Helmet            Verdict `json:"capacete"`
	SafetyGlasses     Verdict `json:"oculos_protecao"`
	HearingProtection Verdict `json:"protetor_auricular"`
	Gloves            Verdict `json:"luvas"`
	SafetyBoots       Verdict `json:"botina"`
	Uniform           Verdict `json:"uniforme"`
	Sunscreen         Verdict `json:"protetor_solar"`
	ReflectiveVest    Verdict `json:"colete_refletivo"`
	Remarks           string  `json:"observacoes"`
}

func (b BasicPPESection) Items() []Item {
	return []Item{
		{KeyHelmet, "Safety helmet", b.Helmet},
		{KeySafetyGlasses, "Safety glasses", b.SafetyGlasses},
		{KeyHearingProtection, "Hearing protection", b.HearingProtection},
		{KeyGloves, "Work gloves", b.Gloves},
		{KeySafetyBoots, "Safety boots", b.SafetyBoots},
		{KeyUniform, "Uniform", b.Uniform},
		{KeySunscreen, "Sunscreen", b.Sunscreen},
		{KeyReflectiveVest, "Reflective vest", b.ReflectiveVest},
	}
}

func (b *BasicPPESection) set(k ItemKey, v Verdict) bool {
	switch k {
	case KeyHelmet:
		b.Helmet = v
	case KeySafetyGlasses:
		b.SafetyGlasses = v
	case KeyHearingProtection:
		b.HearingProtection = v
	case KeyGloves:
		b.Gloves = v
	case KeySafetyBoots:
		b.SafetyBoots = v
	case KeyUniform:
		b.Uniform = v
	case KeySunscreen:
		b.Sunscreen = v
	case KeyReflectiveVest:
		b.ReflectiveVest = v
	default:
		return false
	}
	return true
}

// AerialPPESection only applies when the technician works at height.
type AerialPPESection struct {
	Gate         Gate    `json:"trabalho_altura"`
	Harness      Verdict `json:"cinto_paraquedista"`
	Lanyard      Verdict `json:"talabarte"`
	FallArrester Verdict `json:"trava_quedas"`
	ChinStrap    Verdict `json:"capacete_jugular"`
	Remarks      string  `json:"observacoes"`
}

func (a AerialPPESection) Items() []Item {
	return []Item{
		{KeyHarness, "Full body harness", a.Harness},
		{KeyLanyard, "Lanyard", a.Lanyard},
		{KeyFallArrester, "Fall arrester", a.FallArrester},
		{KeyChinStrap, "Helmet chin strap", a.ChinStrap},
	}
}

func (a *AerialPPESection) set(k ItemKey, v Verdict) bool {
	switch k {
	case KeyHarness:
		a.Harness = v
	case KeyLanyard:
		a.Lanyard = v
	case KeyFallArrester:
		a.FallArrester = v
	case KeyChinStrap:
		a.ChinStrap = v
	default:
		return false
	}
	return true
}

// ElectricalPPESection only applies when the technician works on energized
// installations.
type ElectricalPPESection struct {
	Gate             Gate    `json:"trabalho_eletrico"`
	InsulatingGloves Verdict `json:"luvas_isolantes"`
	FlameResistant   Verdict `json:"vestimenta_antichama"`
	VoltageDetector  Verdict `json:"detector_tensao"`
	Remarks          string  `json:"observacoes"`
}

func (e ElectricalPPESection) Items() []Item {
	return []Item{
		{KeyInsulatingGloves, "Insulating gloves", e.InsulatingGloves},
		{KeyFlameResistant, "Flame resistant clothing", e.FlameResistant},
		{KeyVoltageDetector, "Voltage detector", e.VoltageDetector},
	}
}

func (e *ElectricalPPESection) set(k ItemKey, v Verdict) bool {
	switch k {
	case KeyInsulatingGloves:
		e.InsulatingGloves = v
	case KeyFlameResistant:
		e.FlameResistant = v
	case KeyVoltageDetector:
		e.VoltageDetector = v
	default:
		return false
	}
	return true
}

type GeneralInspectionSection struct {
	GoodCondition    Verdict `json:"epi_bom_estado"`
	ValidCertificate Verdict `json:"ca_valido"`
	TrainingUpToDate Verdict `json:"treinamento_em_dia"`
	Hygiene          Verdict `json:"higienizacao"`
	Declaration      bool    `json:"declaracao_responsabilidade"`
	Remarks          string  `json:"observacoes"`
}

func (g GeneralInspectionSection) Items() []Item {
	return []Item{
		{KeyGoodCondition, "PPE in good condition", g.GoodCondition},
		{KeyValidCertificate, "Valid approval certificate (CA)", g.ValidCertificate},
		{KeyTrainingUpToDate, "Training up to date", g.TrainingUpToDate},
		{KeyHygiene, "PPE cleaned and sanitized", g.Hygiene},
	}
}

func (g *GeneralInspectionSection) set(k ItemKey, v Verdict) bool {
	switch k {
	case KeyGoodCondition:
		g.GoodCondition = v
	case KeyValidCertificate:
		g.ValidCertificate = v
	case KeyTrainingUpToDate:
		g.TrainingUpToDate = v
	case KeyHygiene:
		g.Hygiene = v
	default:
		return false
	}
	return true
}

// IdentificationSection holds who was inspected.
type IdentificationSection struct {
	FullName   string `json:"nome_completo"`
	NationalID string `json:"cpf"`
	Role       string `json:"funcao"`
	Region     string `json:"regiao"`
}

// IdentField names one of the identification text fields.
type IdentField string

const (
	FieldFullName   IdentField = "nome_completo"
	FieldNationalID IdentField = "cpf"
	FieldRole       IdentField = "funcao"
	FieldRegion     IdentField = "regiao"
)

func (f IdentField) Label() string {
	switch f {
	case FieldFullName:
		return "Full name"
	case FieldNationalID:
		return "CPF"
	case FieldRole:
		return "Role"
	case FieldRegion:
		return "Region"
	}
	return string(f)
}

// IdentValue pairs an identification field with its current value.
type IdentValue struct {
	Field IdentField
	Value string
}

// Fields returns the identification fields in display order with their values.
func (i IdentificationSection) Fields() []IdentValue {
	return []IdentValue{
		{FieldFullName, i.FullName},
		{FieldNationalID, i.NationalID},
		{FieldRole, i.Role},
		{FieldRegion, i.Region},
	}
}

type ConclusionSection struct {
	Remarks string `json:"observacoes_gerais"`
}

// ItemsOf returns the declared items of a checklist section, or nil for the
// identification and conclusion steps.
func ItemsOf(s Sheet, sec Section) []Item {
	switch sec {
	case BasicPPE:
		return s.Basic.Items()
	case AerialPPE:
		return s.Aerial.Items()
	case ElectricalPPE:
		return s.Electrical.Items()
	case GeneralInspection:
		return s.General.Items()
	}
	return nil
}

// GateOfSection returns the gate answer of a gated section. Ungated sections
// always report GateYes.
func GateOfSection(s Sheet, sec Section) Gate {
	switch sec {
	case AerialPPE:
		return s.Aerial.Gate
	case ElectricalPPE:
		return s.Electrical.Gate
	}
	return GateYes
}

// RemarksOf returns the free text attached to a section.
func RemarksOf(s Sheet, sec Section) string {
	switch sec {
	case BasicPPE:
		return s.Basic.Remarks
	case AerialPPE:
		return s.Aerial.Remarks
	case ElectricalPPE:
		return s.Electrical.Remarks
	case GeneralInspection:
		return s.General.Remarks
	case Conclusion:
		return s.Conclusion.Remarks
	}
	return ""
}

// SectionOfItem finds the section that declares key.
func SectionOfItem(key ItemKey) (Section, bool) {
	var zero Sheet
	for _, sec := range ChecklistSections() {
		for _, it := range ItemsOf(zero, sec) {
			if it.Key == key {
				return sec, true
			}
		}
	}
	return 0, false
}
