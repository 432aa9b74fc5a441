package domain

import "time"

// BusinessCategory enumerates the supported business categories.
type BusinessCategory string

const (
	CategoryRestaurant BusinessCategory = "restaurant"
	CategoryCafe       BusinessCategory = "cafe"
	CategorySalon      BusinessCategory = "salon"
	CategoryGym        BusinessCategory = "gym"
	CategoryRetail     BusinessCategory = "retail"
	CategoryClinic     BusinessCategory = "clinic"
	CategoryHotel      BusinessCategory = "hotel"
	CategoryServices   BusinessCategory = "services"
	CategoryOther      BusinessCategory = "other"
)

// ValidCategory reports whether c is one of the supported categories.
func ValidCategory(c BusinessCategory) bool {
	switch c {
	case CategoryRestaurant, CategoryCafe, CategorySalon, CategoryGym,
		CategoryRetail, CategoryClinic, CategoryHotel, CategoryServices, CategoryOther:
		return true
	}
	return false
}

// PaymentPlanID identifies one of the two subscription tiers.
type PaymentPlanID string

const (
	PlanQRBasic PaymentPlanID = "qr-basic"
	PlanQRPlus  PaymentPlanID = "qr-plus"
)

// BusinessRecord is the canonical record for a business managed through
// the growth QR dashboard. ID is the QR identifier/slug and is immutable
// once assigned; every other field is freely overwritable.
type BusinessRecord struct {
	ID string `json:"id"`

	Name     string           `json:"name"`
	Category BusinessCategory `json:"category"`

	Email string `json:"email"`
	Phone string `json:"phone"`

	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Area        string `json:"area"`
	PostalCode  string `json:"postal_code"`

	Overview string   `json:"overview"`
	Services []string `json:"services"`
	Keywords []string `json:"keywords"`

	GoogleReviewURL string `json:"google_review_url"`
	GooglePlaceID   string `json:"google_place_id"`
	Instagram       string `json:"instagram"`
	YouTube         string `json:"youtube"`
	WhatsAppNumber  string `json:"whatsapp_number"`
	Website         string `json:"website"`

	AutoReplyEnabled bool `json:"auto_reply_enabled"`

	PaymentPlan      PaymentPlanID `json:"payment_plan"`
	PaymentStatus    string        `json:"payment_status"`
	PaymentExpiresAt *time.Time    `json:"payment_expires_at,omitempty"`

	// Derived review counters, read-only from the backend.
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

// Clone returns a deep copy of the record. Slice fields are copied so the
// clone can be edited without aliasing the original.
func (b BusinessRecord) Clone() BusinessRecord {
	out := b
	if b.Services != nil {
		out.Services = append([]string(nil), b.Services...)
	}
	if b.Keywords != nil {
		out.Keywords = append([]string(nil), b.Keywords...)
	}
	if b.PaymentExpiresAt != nil {
		t := *b.PaymentExpiresAt
		out.PaymentExpiresAt = &t
	}
	return out
}

// OverrideRecord is a client-side partial BusinessRecord keyed by business
// id. A nil field means "defer to the canonical value"; there are no
// tombstones, so an override can never clear a canonical value.
type OverrideRecord struct {
	Name     *string           `json:"name,omitempty"`
	Category *BusinessCategory `json:"category,omitempty"`

	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`

	AddressLine *string `json:"address_line,omitempty"`
	City        *string `json:"city,omitempty"`
	Area        *string `json:"area,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`

	Overview *string   `json:"overview,omitempty"`
	Services *[]string `json:"services,omitempty"`
	Keywords *[]string `json:"keywords,omitempty"`

	GoogleReviewURL *string `json:"google_review_url,omitempty"`
	GooglePlaceID   *string `json:"google_place_id,omitempty"`
	Instagram       *string `json:"instagram,omitempty"`
	YouTube         *string `json:"youtube,omitempty"`
	WhatsAppNumber  *string `json:"whatsapp_number,omitempty"`
	Website         *string `json:"website,omitempty"`

	AutoReplyEnabled *bool `json:"auto_reply_enabled,omitempty"`
}

// IsEmpty reports whether the override carries no fields at all.
func (o *OverrideRecord) IsEmpty() bool {
	if o == nil {
		return true
	}
	return o.Name == nil && o.Category == nil && o.Email == nil && o.Phone == nil &&
		o.AddressLine == nil && o.City == nil && o.Area == nil && o.PostalCode == nil &&
		o.Overview == nil && o.Services == nil && o.Keywords == nil &&
		o.GoogleReviewURL == nil && o.GooglePlaceID == nil && o.Instagram == nil &&
		o.YouTube == nil && o.WhatsAppNumber == nil && o.Website == nil &&
		o.AutoReplyEnabled == nil
}
