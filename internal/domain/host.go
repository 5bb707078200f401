package domain

// Family identifies the IP family a record belongs to
type Family string

const (
	FamilyV4 Family = "v4"
	FamilyV6 Family = "v6"
)

// Status is the Online/Offline annotation used on hosts and leases
type Status string

const (
	StatusOnline  Status = "Online"
	StatusOffline Status = "Offline"
)

// StatusFromBool maps a raw liveness flag to a Status
func StatusFromBool(online bool) Status {
	if online {
		return StatusOnline
	}
	return StatusOffline
}

// HostRecord is a canonical neighbor-table entry
type HostRecord struct {
	IP           string `json:"ip"`
	MAC          string `json:"mac"`
	Interface    string `json:"intf"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	Expires      int64  `json:"expires,omitempty"`
	Permanent    bool   `json:"permanent,omitempty"`
	Type         string `json:"type,omitempty"`
	Description  string `json:"description,omitempty"`
	DHCPStatus   Status `json:"dhcp_status,omitempty"`
	Family       Family `json:"family"`
}
