package catalog

import (
	"fmt"
	"strings"
)

// PublicName computes prefix + "." + nativeName (spec §4.4). Native names
// containing a period are preserved as-is: routing splits only on the first
// period, so embedded periods in the native name never create ambiguity.
func PublicName(prefix, nativeName string) string {
	return prefix + "." + nativeName
}

// SplitPublicName splits a namespaced public name at the first period into
// its prefix and native-name parts. It returns an error if name has no
// period or either resulting half is empty.
func SplitPublicName(name string) (prefix, nativeName string, err error) {
	idx := strings.IndexByte(name, '.')
	if idx < 0 {
		return "", "", fmt.Errorf("tool name must be namespaced as 'prefix.name', got %q", name)
	}
	prefix, nativeName = name[:idx], name[idx+1:]
	if strings.TrimSpace(prefix) == "" || strings.TrimSpace(nativeName) == "" {
		return "", "", fmt.Errorf("tool name must be namespaced as 'prefix.name', got %q", name)
	}
	return prefix, nativeName, nil
}
