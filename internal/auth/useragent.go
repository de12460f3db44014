package auth

import "strings"

// ParseUserAgent derives coarse device metadata from the raw header by
// substring matching. Token order matters: every Chrome UA also claims
// Safari, and Edge claims Chrome, so the more specific tokens are
// checked first.
func ParseUserAgent(ua string) DeviceInfo {
	return DeviceInfo{
		Browser:    parseBrowser(ua),
		OS:         parseOS(ua),
		DeviceType: parseDeviceType(ua),
	}
}

func parseBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/") || strings.Contains(ua, "Edge/"):
		return "Edge"
	case strings.Contains(ua, "MSIE") || strings.Contains(ua, "Trident/"):
		return "IE"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Chrome/"):
		return "Chrome"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	default:
		return "Unknown"
	}
}

func parseOS(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") || strings.Contains(ua, "iOS"):
		return "iOS"
	case strings.Contains(ua, "Mac OS X") || strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}

func parseDeviceType(ua string) string {
	switch {
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet"):
		return "Tablet"
	case strings.Contains(ua, "Mobi") || strings.Contains(ua, "iPhone"):
		return "Mobile"
	default:
		return "Desktop"
	}
}
