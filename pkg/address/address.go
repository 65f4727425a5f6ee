// Package address maps user-supplied channel addresses to the canonical
// identifier the archiver service understands.
package address

import "strings"

// Prefix marks a canonical archiver address.
const Prefix = "archiver://pv="

// transport prefixes accepted on input addresses
var transports = []string{"ca://", "pva://"}

// Normalize returns the canonical archiver address for a channel, stripping
// any transport prefix. Already-canonical and empty addresses pass through.
func Normalize(addr string) string {
	if addr == "" || strings.HasPrefix(addr, Prefix) {
		return addr
	}
	for _, t := range transports {
		if strings.HasPrefix(addr, t) {
			addr = strings.TrimPrefix(addr, t)
			break
		}
	}
	return Prefix + addr
}

// PV extracts the queryable channel name from an address in any accepted
// form.
func PV(addr string) string {
	return strings.TrimPrefix(Normalize(addr), Prefix)
}
