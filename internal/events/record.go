package events

import "fmt"

// Record is the ingest form of an event. Either Type carries a name accepted
// by ParseType, or Code carries a raw platform code interpreted with
// APILevel.
type Record struct {
	Type      string `json:"type,omitempty"`
	Code      *int   `json:"code,omitempty"`
	APILevel  int    `json:"api_level,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Subject   string `json:"subject,omitempty"`
}

// Event converts the record. ok is false for platform codes the engine does
// not consume; such records are dropped without error.
func (r Record) Event() (ev Event, ok bool, err error) {
	var typ Type
	switch {
	case r.Code != nil:
		typ, ok = FromPlatformCode(*r.Code, r.APILevel)
		if !ok {
			return Event{}, false, nil
		}
	case r.Type != "":
		typ, err = ParseType(r.Type)
		if err != nil {
			return Event{}, false, err
		}
	default:
		return Event{}, false, fmt.Errorf("record at %d has neither type nor code", r.Timestamp)
	}

	ev = Event{Type: typ, Timestamp: r.Timestamp}
	if typ.IsSubjectEvent() {
		ev.Subject = r.Subject
	}
	if err := ev.Validate(); err != nil {
		return Event{}, false, err
	}
	return ev, true, nil
}
