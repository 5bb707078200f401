package domain

// Vendor is one OUI assignment from the IEEE registry
type Vendor struct {
	Prefix       string `json:"prefix"`
	Organization string `json:"organization"`
	Registry     string `json:"registry,omitempty"`
}
