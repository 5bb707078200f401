package domain

// LeaseRecord is a canonical DHCP lease. ActualStatus is derived by the
// reconciler and never taken from the source.
type LeaseRecord struct {
	IP           string `json:"ip"`
	MAC          string `json:"mac"`
	Hostname     string `json:"hostname,omitempty"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Online       bool   `json:"online"`
	ActualStatus Status `json:"actual_status"`
	LeaseType    string `json:"lease_type,omitempty"`
	Description  string `json:"description,omitempty"`
	Interface    string `json:"interface,omitempty"`
	Family       Family `json:"family"`
}
