package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"rentalwatch/internal/watch"
)

// The oracle is instructed to end its reply with "Matching: NN%". Replies
// without the token are kept whole as the assessment.
var matchingRe = regexp.MustCompile(`\s*Matching:\s*(\d{1,3})%\s*$`)

// ParseVerdict splits an oracle reply into a match score and an assessment.
func ParseVerdict(reply string) watch.Verdict {
	m := matchingRe.FindStringSubmatch(reply)
	if m == nil {
		return watch.Verdict{Assessment: strings.TrimSpace(reply)}
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return watch.Verdict{Assessment: strings.TrimSpace(reply)}
	}
	assessment := strings.TrimSpace(strings.TrimSuffix(reply, m[0]))
	return watch.Verdict{Score: &score, Assessment: assessment}
}
