package merge

import (
	"sort"

	"github.com/tribly/growthqr-bff-go/internal/domain"
)

// Section names one of the four editable groups of business settings.
type Section string

const (
	SectionBusinessInfo Section = "business-info"
	SectionLinks        Section = "links"
	SectionAutoReply    Section = "auto-reply"
	SectionKeywords     Section = "keywords"
)

// Sections lists all sections in a stable order.
var Sections = []Section{SectionBusinessInfo, SectionLinks, SectionAutoReply, SectionKeywords}

// ValidSection reports whether s is a known section name.
func ValidSection(s Section) bool {
	switch s {
	case SectionBusinessInfo, SectionLinks, SectionAutoReply, SectionKeywords:
		return true
	}
	return false
}

type businessInfoFields struct {
	Name        string
	Category    domain.BusinessCategory
	Email       string
	Phone       string
	AddressLine string
	City        string
	Area        string
	PostalCode  string
	Overview    string
	Services    []string
}

type linkFields struct {
	GoogleReviewURL string
	GooglePlaceID   string
	Instagram       string
	YouTube         string
	WhatsAppNumber  string
	Website         string
}

type autoReplyFields struct {
	Enabled bool
}

type keywordFields struct {
	Keywords []string
}

// SnapshotSet holds the last-saved field values for every section of one
// loaded business session. Exactly one set exists per session; individual
// section snapshots are replaced atomically on save, never partially.
type SnapshotSet struct {
	businessInfo businessInfoFields
	links        linkFields
	autoReply    autoReplyFields
	keywords     keywordFields
}

// TakeSnapshots captures all four section snapshots from a merged record,
// typically right after a successful load.
func TakeSnapshots(rec domain.BusinessRecord) *SnapshotSet {
	s := &SnapshotSet{}
	for _, sec := range Sections {
		s.Refresh(sec, rec)
	}
	return s
}

// Refresh replaces one section's snapshot with the record's current
// values for that section.
func (s *SnapshotSet) Refresh(section Section, rec domain.BusinessRecord) {
	switch section {
	case SectionBusinessInfo:
		s.businessInfo = businessInfoFields{
			Name:        rec.Name,
			Category:    rec.Category,
			Email:       rec.Email,
			Phone:       rec.Phone,
			AddressLine: rec.AddressLine,
			City:        rec.City,
			Area:        rec.Area,
			PostalCode:  rec.PostalCode,
			Overview:    rec.Overview,
			Services:    append([]string(nil), rec.Services...),
		}
	case SectionLinks:
		s.links = linkFields{
			GoogleReviewURL: rec.GoogleReviewURL,
			GooglePlaceID:   rec.GooglePlaceID,
			Instagram:       rec.Instagram,
			YouTube:         rec.YouTube,
			WhatsAppNumber:  rec.WhatsAppNumber,
			Website:         rec.Website,
		}
	case SectionAutoReply:
		s.autoReply = autoReplyFields{Enabled: rec.AutoReplyEnabled}
	case SectionKeywords:
		s.keywords = keywordFields{Keywords: append([]string(nil), rec.Keywords...)}
	}
}

// Dirty reports whether the record's current values for the section differ
// from the snapshot. Set-like fields (services, keywords) are compared
// order-insensitively: presentation order must not cause false positives.
func (s *SnapshotSet) Dirty(section Section, rec domain.BusinessRecord) bool {
	switch section {
	case SectionBusinessInfo:
		snap := s.businessInfo
		return snap.Name != rec.Name ||
			snap.Category != rec.Category ||
			snap.Email != rec.Email ||
			snap.Phone != rec.Phone ||
			snap.AddressLine != rec.AddressLine ||
			snap.City != rec.City ||
			snap.Area != rec.Area ||
			snap.PostalCode != rec.PostalCode ||
			snap.Overview != rec.Overview ||
			!equalSets(snap.Services, rec.Services)
	case SectionLinks:
		snap := s.links
		return snap.GoogleReviewURL != rec.GoogleReviewURL ||
			snap.GooglePlaceID != rec.GooglePlaceID ||
			snap.Instagram != rec.Instagram ||
			snap.YouTube != rec.YouTube ||
			snap.WhatsAppNumber != rec.WhatsAppNumber ||
			snap.Website != rec.Website
	case SectionAutoReply:
		return s.autoReply.Enabled != rec.AutoReplyEnabled
	case SectionKeywords:
		return !equalSets(s.keywords.Keywords, rec.Keywords)
	}
	return false
}

// DirtySections returns every section whose current values differ from its
// snapshot, in stable order.
func (s *SnapshotSet) DirtySections(rec domain.BusinessRecord) []Section {
	var dirty []Section
	for _, sec := range Sections {
		if s.Dirty(sec, rec) {
			dirty = append(dirty, sec)
		}
	}
	return dirty
}

// Restore rolls every section of the record back to its snapshot values,
// returning a new record. Non-section fields (id, payment state, review
// counters) pass through untouched.
func (s *SnapshotSet) Restore(rec domain.BusinessRecord) domain.BusinessRecord {
	out := rec.Clone()

	out.Name = s.businessInfo.Name
	out.Category = s.businessInfo.Category
	out.Email = s.businessInfo.Email
	out.Phone = s.businessInfo.Phone
	out.AddressLine = s.businessInfo.AddressLine
	out.City = s.businessInfo.City
	out.Area = s.businessInfo.Area
	out.PostalCode = s.businessInfo.PostalCode
	out.Overview = s.businessInfo.Overview
	out.Services = append([]string(nil), s.businessInfo.Services...)

	out.GoogleReviewURL = s.links.GoogleReviewURL
	out.GooglePlaceID = s.links.GooglePlaceID
	out.Instagram = s.links.Instagram
	out.YouTube = s.links.YouTube
	out.WhatsAppNumber = s.links.WhatsAppNumber
	out.Website = s.links.Website

	out.AutoReplyEnabled = s.autoReply.Enabled

	out.Keywords = append([]string(nil), s.keywords.Keywords...)

	return out
}

// SectionOverride extracts the record's current values for one section as
// an override record, used both for the configure payload and for the
// Override Store write after a successful save.
func SectionOverride(section Section, rec domain.BusinessRecord) *domain.OverrideRecord {
	ov := &domain.OverrideRecord{}
	switch section {
	case SectionBusinessInfo:
		ov.Name = strPtr(rec.Name)
		cat := rec.Category
		ov.Category = &cat
		ov.Email = strPtr(rec.Email)
		ov.Phone = strPtr(rec.Phone)
		ov.AddressLine = strPtr(rec.AddressLine)
		ov.City = strPtr(rec.City)
		ov.Area = strPtr(rec.Area)
		ov.PostalCode = strPtr(rec.PostalCode)
		ov.Overview = strPtr(rec.Overview)
		services := append([]string(nil), rec.Services...)
		ov.Services = &services
	case SectionLinks:
		ov.GoogleReviewURL = strPtr(rec.GoogleReviewURL)
		ov.GooglePlaceID = strPtr(rec.GooglePlaceID)
		ov.Instagram = strPtr(rec.Instagram)
		ov.YouTube = strPtr(rec.YouTube)
		ov.WhatsAppNumber = strPtr(rec.WhatsAppNumber)
		ov.Website = strPtr(rec.Website)
	case SectionAutoReply:
		enabled := rec.AutoReplyEnabled
		ov.AutoReplyEnabled = &enabled
	case SectionKeywords:
		keywords := append([]string(nil), rec.Keywords...)
		ov.Keywords = &keywords
	}
	return ov
}

func strPtr(s string) *string { return &s }

// equalSets compares two string slices as sets: both sides are sorted
// before comparison so insertion order is irrelevant.
func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
