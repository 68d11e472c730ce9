package results

import (
	"strconv"
	"strings"
)

// ResumeIDPrefix precedes the positional index in every resume_id
const ResumeIDPrefix = "resume_"

// NameResolver maps a resume_id to a display label. Implementations never fail;
// unresolvable ids come back unchanged.
type NameResolver func(resumeID string) string

// IdentityResolver labels every row with its raw resume_id
func IdentityResolver(resumeID string) string {
	return resumeID
}

// FileListResolver resolves ids of the form resume_<index> against the names
// of the uploaded files, in upload order.
func FileListResolver(names []string) NameResolver {
	uploaded := make([]string, len(names))
	copy(uploaded, names)

	return func(resumeID string) string {
		idx, ok := ParseResumeIndex(resumeID)
		if !ok || idx >= len(uploaded) {
			return resumeID
		}
		if name := uploaded[idx]; name != "" {
			return name
		}
		return resumeID
	}
}

// ParseResumeIndex extracts the decimal index from resume_<index>.
// Signs, whitespace and trailing characters are rejected.
func ParseResumeIndex(resumeID string) (int, bool) {
	digits, ok := strings.CutPrefix(resumeID, ResumeIDPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return idx, true
}
