package utils

import (
	"strconv"
	"strings"
)

// DefaultPackage names the package of classes declared without one.
const DefaultPackage = "(default)"

// Truncate shortens s to max runes, replacing the tail with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// SimpleClassName returns the segment after the last '/' of an internal name.
func SimpleClassName(internalName string) string {
	if internalName == "" {
		return "unknown"
	}
	if i := strings.LastIndexByte(internalName, '/'); i >= 0 {
		return internalName[i+1:]
	}
	return internalName
}

// PackageName returns the portion of an internal name before the last '/'.
func PackageName(internalName string) string {
	if i := strings.LastIndexByte(internalName, '/'); i > 0 {
		return internalName[:i]
	}
	return DefaultPackage
}

// IsPrivateIP reports whether a dotted quad falls in 10/8, 172.16/12,
// 192.168/16 or 127/8.
func IsPrivateIP(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	octets := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
		octets[i] = n
	}
	switch {
	case octets[0] == 10, octets[0] == 127:
		return true
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return true
	case octets[0] == 192 && octets[1] == 168:
		return true
	}
	return false
}

// HasExtension reports whether name ends with one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
