package rule

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
)

// MaxPriority is the largest priority a rule name may carry.
const MaxPriority = 9999

// UnmanagedPriority is the sentinel prefix given to synthesized names of
// rules that carry no conventional comment. It is not a real priority.
const UnmanagedPriority = 9000

var (
	namePattern     = regexp.MustCompile(`^(\d{1,4})\s+\S`)
	fallbackPattern = regexp.MustCompile(`^9\d{3} [0-9a-f]{64}$`)
)

// ParseName extracts the priority from a rule name of the form
// "<priority> <description>". The second result is false when the name does
// not follow the convention or is a synthesized fallback name.
func ParseName(name string) (int, bool) {
	if fallbackPattern.MatchString(name) {
		return 0, false
	}
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	p, err := strconv.Atoi(m[1])
	if err != nil || p > MaxPriority {
		return 0, false
	}
	return p, true
}

// FallbackName returns the identity name of an unmanaged rule line.
func FallbackName(line string) string {
	sum := sha256.Sum256([]byte(line))
	return strconv.Itoa(UnmanagedPriority) + " " + hex.EncodeToString(sum[:])
}
