package domain

// QRValidation is the backend's verdict on a decoded QR payload.
type QRValidation struct {
	IsActive bool   `json:"is_active"`
	Code     string `json:"code"`
	CDNURL   string `json:"cdn_url"`
}

// QRAssociation is an accepted QR binding retained for the onboarding
// submission. Code is the 8-character identifier; ImageURL is the
// server-provided CDN image, or a client-supplied fallback frame.
type QRAssociation struct {
	Code     string `json:"code"`
	ImageURL string `json:"image_url"`
}
