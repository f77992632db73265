package model

import (
	"ppe_inspection/internal/form"
	"time"

	"gorm.io/datatypes"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAnswered RequestStatus = "answered"
)

// swagger:model InspectionRequest
type InspectionRequest struct {
	BaseModel
	Company    string        `gorm:"size:150;not null" json:"company"`
	Region     string        `gorm:"size:100" json:"region"`
	SiteCode   string        `gorm:"size:50;index" json:"siteCode"`
	Inspector  string        `gorm:"size:100" json:"inspector"`
	Token      string        `gorm:"size:32;not null;uniqueIndex" json:"token"`
	Status     RequestStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	AnsweredAt *time.Time    `json:"answeredAt,omitempty"`
}

func (InspectionRequest) TableName() string {
	return "inspection_requests"
}

// Info is the slice of the request the form and the report need.
func (r *InspectionRequest) Info() form.RequestInfo {
	return form.RequestInfo{
		ID:        r.ID,
		Company:   r.Company,
		Region:    r.Region,
		SiteCode:  r.SiteCode,
		CreatedAt: r.CreatedAt,
	}
}

// swagger:model InspectionAnswer
type InspectionAnswer struct {
	BaseModel
	RequestID  uint   `gorm:"not null;uniqueIndex" json:"requestId"`
	FullName   string `gorm:"size:150" json:"fullName"`
	NationalID string `gorm:"size:14;index" json:"nationalId"`
	Role       string `gorm:"size:100" json:"role"`
	Region     string `gorm:"size:100" json:"region"`

	Basic      datatypes.JSONType[form.BasicPPESection]          `json:"basic"`
	Aerial     datatypes.JSONType[form.AerialPPESection]         `json:"aerial"`
	Electrical datatypes.JSONType[form.ElectricalPPESection]     `json:"electrical"`
	General    datatypes.JSONType[form.GeneralInspectionSection] `json:"general"`

	Declaration bool   `gorm:"default:false" json:"declaration"`
	Remarks     string `gorm:"type:text" json:"remarks"`

	Outcome       form.Outcome `gorm:"size:20;index" json:"outcome"`
	Approved      int          `json:"approved"`
	Rejected      int          `json:"rejected"`
	NotApplicable int          `json:"notApplicable"`
	Unanswered    int          `json:"unanswered"`

	SubmittedAt time.Time          `gorm:"index" json:"submittedAt"`
	Photos      []InspectionPhoto  `gorm:"foreignKey:AnswerID" json:"photos,omitempty"`
	Request     *InspectionRequest `gorm:"foreignKey:RequestID" json:"-"`
}

func (InspectionAnswer) TableName() string {
	return "inspection_answers"
}

// NewInspectionAnswer flattens a finalized form into a row. The outcome and
// tallies are stored for listing and export; the sheet stays the source of
// truth.
func NewInspectionAnswer(a form.Answer, submittedAt time.Time) *InspectionAnswer {
	sum := form.Evaluate(a.Sheet)
	row := &InspectionAnswer{
		RequestID:     a.RequestID,
		FullName:      a.Identification.FullName,
		NationalID:    a.Identification.NationalID,
		Role:          a.Identification.Role,
		Region:        a.Identification.Region,
		Basic:         datatypes.NewJSONType(a.Basic),
		Aerial:        datatypes.NewJSONType(a.Aerial),
		Electrical:    datatypes.NewJSONType(a.Electrical),
		General:       datatypes.NewJSONType(a.General),
		Declaration:   a.General.Declaration,
		Remarks:       a.Conclusion.Remarks,
		Outcome:       sum.Outcome,
		Approved:      sum.Tally.Approved,
		Rejected:      sum.Tally.Rejected,
		NotApplicable: sum.Tally.NotApplicable,
		Unanswered:    sum.Tally.Unanswered,
		SubmittedAt:   submittedAt,
	}
	for _, p := range a.Photos {
		row.Photos = append(row.Photos, NewInspectionPhoto(p))
	}
	return row
}

// Sheet rebuilds the answered form.
func (a *InspectionAnswer) Sheet() form.Sheet {
	s := form.Sheet{
		Basic:      a.Basic.Data(),
		Aerial:     a.Aerial.Data(),
		Electrical: a.Electrical.Data(),
		General:    a.General.Data(),
	}
	s.Identification = form.IdentificationSection{
		FullName:   a.FullName,
		NationalID: a.NationalID,
		Role:       a.Role,
		Region:     a.Region,
	}
	s.Conclusion.Remarks = a.Remarks
	return s
}

// Answer rebuilds the submission including its photo references.
func (a *InspectionAnswer) Answer() form.Answer {
	out := form.Answer{RequestID: a.RequestID, Sheet: a.Sheet()}
	for _, p := range a.Photos {
		if ref, err := p.Ref(); err == nil {
			out.Photos = append(out.Photos, ref)
		}
	}
	return out
}

// swagger:model InspectionPhoto
type InspectionPhoto struct {
	BaseModel
	AnswerID   uint   `gorm:"not null;index" json:"answerId"`
	PhotoID    string `gorm:"size:36;not null;uniqueIndex" json:"photoId"`
	Slot       string `gorm:"size:80;not null" json:"slot"`
	FileName   string `gorm:"size:255" json:"fileName"`
	MimeType   string `gorm:"size:50" json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	StorageKey string `gorm:"size:255;not null" json:"storageKey"`
	URL        string `gorm:"size:512" json:"url"`
}

func (InspectionPhoto) TableName() string {
	return "inspection_photos"
}

func NewInspectionPhoto(p form.PhotoRef) InspectionPhoto {
	return InspectionPhoto{
		PhotoID:    p.ID,
		Slot:       p.Slot.String(),
		FileName:   p.FileName,
		MimeType:   p.MimeType,
		SizeBytes:  p.SizeBytes,
		Width:      p.Width,
		Height:     p.Height,
		StorageKey: p.StorageKey,
		URL:        p.URL,
	}
}

func (p *InspectionPhoto) Ref() (form.PhotoRef, error) {
	slot, err := form.ParsePhotoSlot(p.Slot)
	if err != nil {
		return form.PhotoRef{}, err
	}
	return form.PhotoRef{
		ID:         p.PhotoID,
		Slot:       slot,
		FileName:   p.FileName,
		MimeType:   p.MimeType,
		Width:      p.Width,
		Height:     p.Height,
		SizeBytes:  p.SizeBytes,
		StorageKey: p.StorageKey,
		URL:        p.URL,
	}, nil
}
