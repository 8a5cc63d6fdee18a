package address

import (
	"regexp"

	"StoreFront/internal/backend"
)

// serverIDPattern is the backend's 24-hex object-reference convention.
var serverIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Address is the locally-tagged shape. A record created optimistically has
// an empty ServerID until the backend confirms it; only server-saved
// addresses may reach order creation.
type Address struct {
	LocalID          string `json:"localId"`
	ServerID         string `json:"serverId,omitempty"`
	CorrelationID    string `json:"correlationId,omitempty"`
	RecipientName    string `json:"recipientName"`
	RecipientContact string `json:"recipientContact"`
	Line1            string `json:"line1"`
	Line2            string `json:"line2,omitempty"`
	Line3            string `json:"line3,omitempty"`
	Landmark         string `json:"landmark,omitempty"`
	CountryID        string `json:"countryId"`
	StateID          string `json:"stateId"`
	CityID           string `json:"cityId"`
	Pincode          string `json:"pincode"`
	IsDefault        bool   `json:"isDefault"`
}

// Saved reports whether the address carries a server-issued identifier.
func (a Address) Saved() bool {
	return serverIDPattern.MatchString(a.ServerID)
}

func fromServer(sa backend.Address) Address {
	return Address{
		LocalID:          "loc_" + sa.ID,
		ServerID:         sa.ID,
		CorrelationID:    sa.ClientRef,
		RecipientName:    sa.Name,
		RecipientContact: sa.ContactNumber,
		Line1:            sa.AddressLine1,
		Line2:            sa.AddressLine2,
		Line3:            sa.AddressLine3,
		Landmark:         sa.Landmark,
		CountryID:        sa.CountryID,
		StateID:          sa.StateID,
		CityID:           sa.CityID,
		Pincode:          sa.Pincode,
		IsDefault:        sa.DefaultAddress,
	}
}

func toServer(a Address) backend.Address {
	return backend.Address{
		ID:             a.ServerID,
		ClientRef:      a.CorrelationID,
		Name:           a.RecipientName,
		ContactNumber:  a.RecipientContact,
		AddressLine1:   a.Line1,
		AddressLine2:   a.Line2,
		AddressLine3:   a.Line3,
		Landmark:       a.Landmark,
		CountryID:      a.CountryID,
		StateID:        a.StateID,
		CityID:         a.CityID,
		Pincode:        a.Pincode,
		DefaultAddress: a.IsDefault,
	}
}

// Default applies the selection policy: the entry flagged default wins, else
// the first entry.
func Default(list []Address) (Address, bool) {
	if len(list) == 0 {
		return Address{}, false
	}
	for _, a := range list {
		if a.IsDefault {
			return a, true
		}
	}
	return list[0], true
}
