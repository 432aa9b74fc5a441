package domain

// PlaceSuggestion is one autocomplete hit for a business-name search.
type PlaceSuggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
	MainText    string `json:"main_text"`
	Secondary   string `json:"secondary_text"`
}

// PlaceDetails is the resolved detail for a selected place. Rating and
// review count, when present, seed the profile analysis.
type PlaceDetails struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city"`
	Area             string  `json:"area"`
	PostalCode       string  `json:"postal_code"`
	Phone            string  `json:"phone"`
	Website          string  `json:"website"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
}
