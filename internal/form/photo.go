package form

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PhotoStatus tracks a photo through compression and upload.
type PhotoStatus string

const (
	PhotoStatusPending   PhotoStatus = "pending"
	PhotoStatusUploading PhotoStatus = "uploading"
	PhotoStatusUploaded  PhotoStatus = "uploaded"
	PhotoStatusError     PhotoStatus = "error"
)

// PhotoSlot identifies the question a photo is evidence for. An empty
// Question attaches the photo to the section as a whole.
type PhotoSlot struct {
	Section  Section `json:"section"`
	Question ItemKey `json:"question,omitempty"`
}

func (p PhotoSlot) String() string {
	if p.Question == "" {
		return p.Section.String()
	}
	return p.Section.String() + "/" + string(p.Question)
}

// ParsePhotoSlot is the inverse of PhotoSlot.String.
func ParsePhotoSlot(s string) (PhotoSlot, error) {
	name, question, _ := strings.Cut(s, "/")
	sec, err := ParseSection(name)
	if err != nil {
		return PhotoSlot{}, err
	}
	slot := PhotoSlot{Section: sec, Question: ItemKey(question)}
	return slot, slot.Validate()
}

// Validate checks that the question, when given, belongs to the section.
func (p PhotoSlot) Validate() error {
	if !p.Section.valid() {
		return fmt.Errorf("form: unknown section %d", p.Section)
	}
	if p.Question == "" {
		return nil
	}
	sec, ok := SectionOfItem(p.Question)
	if !ok || sec != p.Section {
		return fmt.Errorf("%w: %q in %s", ErrUnknownItem, p.Question, p.Section)
	}
	return nil
}

// Photo is one piece of photo evidence attached while filling the form.
type Photo struct {
	ID         string      `json:"id"`
	Slot       PhotoSlot   `json:"slot"`
	FileName   string      `json:"fileName"`
	MimeType   string      `json:"mimeType"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	SizeBytes  int64       `json:"sizeBytes"`
	Status     PhotoStatus `json:"status"`
	StorageKey string      `json:"storageKey,omitempty"`
	URL        string      `json:"url,omitempty"`
	Error      string      `json:"error,omitempty"`
	AddedAt    time.Time   `json:"addedAt"`
	// Data is the original upload. It is dropped once the photo is stored.
	Data []byte `json:"-"`
}

// PhotoRef is what a submission keeps of an uploaded photo.
type PhotoRef struct {
	ID         string    `json:"id"`
	Slot       PhotoSlot `json:"slot"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	SizeBytes  int64     `json:"sizeBytes"`
	StorageKey string    `json:"storageKey"`
	URL        string    `json:"url"`
}

func (p Photo) Ref() PhotoRef {
	return PhotoRef{
		ID:         p.ID,
		Slot:       p.Slot,
		FileName:   p.FileName,
		MimeType:   p.MimeType,
		Width:      p.Width,
		Height:     p.Height,
		SizeBytes:  p.SizeBytes,
		StorageKey: p.StorageKey,
		URL:        p.URL,
	}
}

// PhotoEvent is a step of the photo pipeline, applied with State.Reduce.
type PhotoEvent interface {
	photoID() string
	reduce(list []Photo, idx int) []Photo
}

// PhotoAdded registers a new photo in the pending state.
type PhotoAdded struct {
	Photo Photo
}

// PhotoUploadStarted moves a photo to uploading.
type PhotoUploadStarted struct {
	ID string
}

// PhotoUploaded records where a photo was stored and drops its binary.
type PhotoUploaded struct {
	ID         string
	StorageKey string
	URL        string
	SizeBytes  int64
	MimeType   string
}

// PhotoFailed marks a photo as failed. The photo stays listed so the user can
// see it and retry or remove it.
type PhotoFailed struct {
	ID  string
	Err string
}

// PhotoRemoved deletes a photo from its slot.
type PhotoRemoved struct {
	ID string
}

func (e PhotoAdded) photoID() string         { return e.Photo.ID }
func (e PhotoUploadStarted) photoID() string { return e.ID }
func (e PhotoUploaded) photoID() string      { return e.ID }
func (e PhotoFailed) photoID() string        { return e.ID }
func (e PhotoRemoved) photoID() string       { return e.ID }

func (e PhotoAdded) reduce(list []Photo, idx int) []Photo {
	if idx >= 0 {
		return list
	}
	p := e.Photo
	if p.Status == "" {
		p.Status = PhotoStatusPending
	}
	out := make([]Photo, len(list), len(list)+1)
	copy(out, list)
	return append(out, p)
}

func (e PhotoUploadStarted) reduce(list []Photo, idx int) []Photo {
	return replaceAt(list, idx, func(p *Photo) {
		p.Status = PhotoStatusUploading
		p.Error = ""
	})
}

func (e PhotoUploaded) reduce(list []Photo, idx int) []Photo {
	return replaceAt(list, idx, func(p *Photo) {
		p.Status = PhotoStatusUploaded
		p.StorageKey = e.StorageKey
		p.URL = e.URL
		p.Error = ""
		p.Data = nil
		if e.SizeBytes > 0 {
			p.SizeBytes = e.SizeBytes
		}
		if e.MimeType != "" {
			p.MimeType = e.MimeType
		}
	})
}

func (e PhotoFailed) reduce(list []Photo, idx int) []Photo {
	return replaceAt(list, idx, func(p *Photo) {
		p.Status = PhotoStatusError
		p.Error = e.Err
	})
}

func (e PhotoRemoved) reduce(list []Photo, idx int) []Photo {
	if idx < 0 {
		return list
	}
	out := make([]Photo, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

func replaceAt(list []Photo, idx int, fn func(*Photo)) []Photo {
	if idx < 0 {
		return list
	}
	out := make([]Photo, len(list))
	copy(out, list)
	fn(&out[idx])
	return out
}

// Reduce applies a photo event. Events for unknown photo ids are ignored, so
// a late upload callback for a removed photo is harmless.
func (s State) Reduce(ev PhotoEvent) State {
	slotKey, idx := s.findPhoto(ev.photoID())
	if added, ok := ev.(PhotoAdded); ok && idx < 0 {
		slotKey = added.Photo.Slot.String()
	}
	if slotKey == "" {
		return s
	}

	list := ev.reduce(s.Photos[slotKey], idx)

	photos := make(map[string][]Photo, len(s.Photos)+1)
	for k, v := range s.Photos {
		photos[k] = v
	}
	if len(list) == 0 {
		delete(photos, slotKey)
	} else {
		photos[slotKey] = list
	}
	s.Photos = photos
	return s
}

func (s State) findPhoto(id string) (string, int) {
	for key, list := range s.Photos {
		for i, p := range list {
			if p.ID == id {
				return key, i
			}
		}
	}
	return "", -1
}

// dropPhotos removes every photo attached to sec. The map is replaced, not
// edited, since earlier states share it.
func (s *State) dropPhotos(sec Section) {
	var photos map[string][]Photo
	for k, list := range s.Photos {
		if len(list) > 0 && list[0].Slot.Section == sec {
			continue
		}
		if photos == nil {
			photos = make(map[string][]Photo, len(s.Photos))
		}
		photos[k] = list
	}
	s.Photos = photos
}

// PhotosDroppedBy lists the photos of s that next no longer has.
func (s State) PhotosDroppedBy(next State) []Photo {
	var out []Photo
	for _, p := range s.PhotoList() {
		if _, ok := next.Photo(p.ID); !ok {
			out = append(out, p)
		}
	}
	return out
}

// Photo looks a photo up by id.
func (s State) Photo(id string) (Photo, bool) {
	key, idx := s.findPhoto(id)
	if idx < 0 {
		return Photo{}, false
	}
	return s.Photos[key][idx], true
}

// PhotosIn returns the photos attached to one slot.
func (s State) PhotosIn(slot PhotoSlot) []Photo {
	return s.Photos[slot.String()]
}

// PhotoList flattens all photos in section order, then slot name, then the
// order they were added.
func (s State) PhotoList() []Photo {
	keys := make([]string, 0, len(s.Photos))
	for k, list := range s.Photos {
		if len(list) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := s.Photos[keys[i]][0].Slot, s.Photos[keys[j]][0].Slot
		if si.Section != sj.Section {
			return si.Section < sj.Section
		}
		return keys[i] < keys[j]
	})
	var out []Photo
	for _, k := range keys {
		out = append(out, s.Photos[k]...)
	}
	return out
}

// PendingUploads counts photos that are not settled yet.
func (s State) PendingUploads() int {
	n := 0
	for _, list := range s.Photos {
		for _, p := range list {
			if p.Status == PhotoStatusPending || p.Status == PhotoStatusUploading {
				n++
			}
		}
	}
	return n
}
