package normalize

import "northscrape-engine/internal/domain"

// IdentityKey is the dedupe key of a lead: normalised name plus normalised
// street number and street. Leads without a street fall back to the city so
// that branches in different towns stay distinct.
func IdentityKey(name string, addr domain.AddressParts) string {
	street := keyPart(addr.Street)
	if street == "" {
		street = "@" + keyPart(addr.City)
	}
	return keyPart(name) + "|" + street
}
