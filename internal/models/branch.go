package models

import "strings"

// Branch is a pickup/origin warehouse. The list is fixed store data, not
// user-editable, so it ships with the binary rather than living in a table.
type Branch struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Branches lists every pickup branch, first entry is the default origin.
var Branches = []Branch{
	{Code: "tuparev", Name: "TUPAREV", Latitude: -6.3015, Longitude: 107.2975, Address: "JL. TUPAREV NO. 123, KARAWANG"},
	{Code: "cikarang", Name: "CIKARANG", Latitude: -6.2847, Longitude: 107.1706, Address: "JL. RAYA CIKARANG NO. 45, BEKASI"},
	{Code: "perumnas", Name: "PERUMNAS", Latitude: -6.3265, Longitude: 107.2952, Address: "PERUMNAS KARAWANG, TELUKJAMBE"},
	{Code: "interchange", Name: "INTERCHANGE", Latitude: -6.3458, Longitude: 107.2885, Address: "INTERCHANGE KARAWANG BARAT"},
	{Code: "lamaran", Name: "LAMARAN", Latitude: -6.3094, Longitude: 107.3328, Address: "JL. LAMARAN RAYA, KARAWANG"},
	{Code: "kosambi", Name: "KOSAMBI", Latitude: -6.3572, Longitude: 107.3785, Address: "KLARI-KOSAMBI, KARAWANG"},
	{Code: "klari", Name: "KLARI", Latitude: -6.3533, Longitude: 107.3592, Address: "KECAMATAN KLARI, KARAWANG"},
	{Code: "purwakarta", Name: "PURWAKARTA", Latitude: -6.5544, Longitude: 107.4431, Address: "JL. RAYA PURWAKARTA NO. 88"},
}

// DefaultBranch is the origin preselected for a fresh checkout session.
func DefaultBranch() Branch {
	return Branches[0]
}

// BranchByCode looks up a branch by its code, case-insensitively.
func BranchByCode(code string) (Branch, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, b := range Branches {
		if b.Code == code {
			return b, true
		}
	}
	return Branch{}, false
}
