package types

import (
	"fmt"
	"time"
)

// EntryStub is a minimal reference to a not-yet-fetched result entry,
// discovered on a listing page.
type EntryStub struct {
	// ID is the numeric entry identifier from the /result/<id> link.
	ID int64 `json:"id"`

	// URL is the absolute detail-page URL for this entry.
	URL string `json:"url"`

	// DiscoveredAt is when the stub was found on a listing page.
	DiscoveredAt time.Time `json:"discovered_at"`
}

// NewEntryStub creates a stub for the given entry id and detail URL.
func NewEntryStub(id int64, url string) EntryStub {
	return EntryStub{
		ID:           id,
		URL:          url,
		DiscoveredAt: time.Now(),
	}
}

func (s EntryStub) String() string {
	return fmt.Sprintf("entry %d (%s)", s.ID, s.URL)
}

// RawEntryRecord is the unparsed text pulled from a detail page, one named
// slot per field category. Slots are empty strings when the page did not
// carry that section. Failed marks entries whose fetch permanently failed
// after retries; such records carry no text blocks.
type RawEntryRecord struct {
	EntryStub

	Institution  string `json:"institution,omitempty"`
	Program      string `json:"program,omitempty"`
	Degree       string `json:"degree,omitempty"`
	Decision     string `json:"decision,omitempty"`
	Notification string `json:"notification,omitempty"`
	Country      string `json:"country,omitempty"`
	GPA          string `json:"gpa,omitempty"`
	GRETotal     string `json:"gre_total,omitempty"`
	GREVerbal    string `json:"gre_verbal,omitempty"`
	GREAW        string `json:"gre_aw,omitempty"`
	AddedOn      string `json:"added_on,omitempty"`
	Term         string `json:"term,omitempty"`
	Notes        string `json:"notes,omitempty"`

	Failed        bool      `json:"failed"`
	FailureReason string    `json:"failure_reason,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// NewFailedRecord builds the record emitted when a detail fetch exhausts
// its retries. One bad entry never terminates the batch.
func NewFailedRecord(stub EntryStub, cause error) *RawEntryRecord {
	r := &RawEntryRecord{
		EntryStub: stub,
		Failed:    true,
		FetchedAt: time.Now(),
	}
	if cause != nil {
		r.FailureReason = cause.Error()
	}
	return r
}
