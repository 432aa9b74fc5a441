// Package merge reconciles a canonical business record with its
// client-side override record, and tracks per-section snapshots for
// dirty detection and rollback.
package merge

import "github.com/tribly/growthqr-bff-go/internal/domain"

// Merge combines a canonical record with an override. Every field present
// in the override replaces the canonical value; absent fields fall through.
// The function is pure: neither input is mutated, and merging twice yields
// the same result as merging once.
func Merge(canonical domain.BusinessRecord, override *domain.OverrideRecord) domain.BusinessRecord {
	out := canonical.Clone()
	if override == nil {
		return out
	}

	if override.Name != nil {
		out.Name = *override.Name
	}
	if override.Category != nil {
		out.Category = *override.Category
	}
	if override.Email != nil {
		out.Email = *override.Email
	}
	if override.Phone != nil {
		out.Phone = *override.Phone
	}
	if override.AddressLine != nil {
		out.AddressLine = *override.AddressLine
	}
	if override.City != nil {
		out.City = *override.City
	}
	if override.Area != nil {
		out.Area = *override.Area
	}
	if override.PostalCode != nil {
		out.PostalCode = *override.PostalCode
	}
	if override.Overview != nil {
		out.Overview = *override.Overview
	}
	if override.Services != nil {
		out.Services = append([]string(nil), (*override.Services)...)
	}
	if override.Keywords != nil {
		out.Keywords = append([]string(nil), (*override.Keywords)...)
	}
	if override.GoogleReviewURL != nil {
		out.GoogleReviewURL = *override.GoogleReviewURL
	}
	if override.GooglePlaceID != nil {
		out.GooglePlaceID = *override.GooglePlaceID
	}
	if override.Instagram != nil {
		out.Instagram = *override.Instagram
	}
	if override.YouTube != nil {
		out.YouTube = *override.YouTube
	}
	if override.WhatsAppNumber != nil {
		out.WhatsAppNumber = *override.WhatsAppNumber
	}
	if override.Website != nil {
		out.Website = *override.Website
	}
	if override.AutoReplyEnabled != nil {
		out.AutoReplyEnabled = *override.AutoReplyEnabled
	}

	return out
}

// ApplyOverride performs a field-level shallow merge of newer override
// fields onto an existing override. Fields set in next win; fields only in
// prev survive. Returns a new record; inputs are not mutated.
func ApplyOverride(prev, next *domain.OverrideRecord) *domain.OverrideRecord {
	if prev == nil && next == nil {
		return nil
	}
	out := &domain.OverrideRecord{}
	if prev != nil {
		*out = *prev
	}
	if next == nil {
		return out
	}

	if next.Name != nil {
		out.Name = next.Name
	}
	if next.Category != nil {
		out.Category = next.Category
	}
	if next.Email != nil {
		out.Email = next.Email
	}
	if next.Phone != nil {
		out.Phone = next.Phone
	}
	if next.AddressLine != nil {
		out.AddressLine = next.AddressLine
	}
	if next.City != nil {
		out.City = next.City
	}
	if next.Area != nil {
		out.Area = next.Area
	}
	if next.PostalCode != nil {
		out.PostalCode = next.PostalCode
	}
	if next.Overview != nil {
		out.Overview = next.Overview
	}
	if next.Services != nil {
		out.Services = next.Services
	}
	if next.Keywords != nil {
		out.Keywords = next.Keywords
	}
	if next.GoogleReviewURL != nil {
		out.GoogleReviewURL = next.GoogleReviewURL
	}
	if next.GooglePlaceID != nil {
		out.GooglePlaceID = next.GooglePlaceID
	}
	if next.Instagram != nil {
		out.Instagram = next.Instagram
	}
	if next.YouTube != nil {
		out.YouTube = next.YouTube
	}
	if next.WhatsAppNumber != nil {
		out.WhatsAppNumber = next.WhatsAppNumber
	}
	if next.Website != nil {
		out.Website = next.Website
	}
	if next.AutoReplyEnabled != nil {
		out.AutoReplyEnabled = next.AutoReplyEnabled
	}

	return out
}
