package tracking

import "strings"

// Browser family and device class labels
const (
	FamilyUnknown = "Unknown"

	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
)

// familyMarkers is checked in order, first match wins. Edge UAs contain both
// "chrome" and "safari", and Chrome UAs contain "safari", so the more specific
// markers come first.
var familyMarkers = []struct {
	marker string
	family string
}{
	{"edge", "Edge"},
	{"chrome", "Chrome"},
	{"firefox", "Firefox"},
	{"safari", "Safari"},
}

// ClassifyUserAgent maps a raw User-Agent header to a coarse browser family
// and device class via substring matching. It is a heuristic, not a parser:
// it never fails, and anything unrecognized is Unknown/Desktop.
func ClassifyUserAgent(userAgent string) (family, device string) {
	ua := strings.ToLower(userAgent)

	family = FamilyUnknown
	for _, m := range familyMarkers {
		if strings.Contains(ua, m.marker) {
			family = m.family
			break
		}
	}

	device = DeviceDesktop
	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone") {
		device = DeviceMobile
	} else if strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad") {
		device = DeviceTablet
	}

	return family, device
}
