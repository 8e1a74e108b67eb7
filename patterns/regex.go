package patterns

import "regexp"

var (
	ipPattern = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)

	urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|ftp://|www\.|[a-zA-Z0-9][-a-zA-Z0-9]*\.(?:com|org|net|edu|gov|mil|int|co|io|me|tv|tk|ml|ga|cf))[-a-zA-Z0-9+&@#/%?=~_|!:,.;]*[-a-zA-Z0-9+&@#/%=~_|]`)

	base64Pattern = regexp.MustCompile(`^(?:[A-Za-z0-9+/]{4})*(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?$`)

	suspiciousDomainPattern = regexp.MustCompile(`(?i)\b(?:bit\.ly|tinyurl\.com|t\.co|goo\.gl|ow\.ly|short\.link|discord\.gg|pastebin\.com)`)

	rawIPURLPattern = regexp.MustCompile(`://[0-9]+\.[0-9]+\.[0-9]+\.[0-9]+`)
)

// ContainsURL reports whether s contains a URL-shaped substring.
func ContainsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// FindIP returns the first dotted quad in s.
func FindIP(s string) (string, bool) {
	ip := ipPattern.FindString(s)
	return ip, ip != ""
}

// IsBase64 reports whether the whole of s is Base64 alphabet with valid padding.
func IsBase64(s string) bool {
	return s != "" && base64Pattern.MatchString(s)
}

// ContainsSuspiciousDomain reports whether s references a URL shortener or
// paste/chat service.
func ContainsSuspiciousDomain(s string) bool {
	return suspiciousDomainPattern.MatchString(s)
}

// HasRawIPHost reports whether s contains a URL whose host is a dotted quad.
func HasRawIPHost(s string) bool {
	return rawIPURLPattern.MatchString(s)
}
