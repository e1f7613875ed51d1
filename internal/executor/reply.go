package executor

import (
	"strconv"
	"strings"

	"github.com/compss-go/pipeworker/internal/param"
)

// ReturnEncoding is one (new_type, new_value) pair in a success reply's
// param-return encoding (spec.md §4.9): new_value is the literal "null"
// for a non-persistent result, or the persistent id otherwise.
type ReturnEncoding struct {
	NewType  param.ContentType
	NewValue string
}

// SuccessReply builds the "endTask <job_id> 0 <param-return-encoding>"
// reply line. The param-return encoding always follows a trailing space
// after the exit value, even with zero return pairs — the original
// worker builds this line as a " ".join of (tag, job_id, exit_value,
// params), and an empty params element still contributes its leading
// separator, giving "endTask 42 0 " for a no-return task (spec.md's S1
// scenario).
func SuccessReply(jobID string, returns []ReturnEncoding) string {
	params := make([]string, 0, len(returns)*2)
	for _, r := range returns {
		params = append(params, strconv.Itoa(int(r.NewType)), valueOrNull(r.NewValue))
	}
	var b strings.Builder
	b.WriteString("endTask ")
	b.WriteString(jobID)
	b.WriteString(" 0 ")
	b.WriteString(strings.Join(params, " "))
	return b.String()
}

func valueOrNull(v string) string {
	if v == "" {
		return "null"
	}
	return v
}

// DomainExceptionReply builds the "compssExceptionTask <job_id> <msg>"
// reply line, replacing spaces in msg with underscores per the wire
// format.
func DomainExceptionReply(jobID, msg string) string {
	return "compssExceptionTask " + jobID + " " + strings.ReplaceAll(msg, " ", "_")
}

// OtherExceptionReply builds the "endTask <job_id> <exit_value>" reply
// line for an unexpected (non-domain) exception.
func OtherExceptionReply(jobID string, exitValue int) string {
	return "endTask " + jobID + " " + strconv.Itoa(exitValue)
}
