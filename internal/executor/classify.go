package executor

import "strings"

// defaultErrorMarkers is the baseline set error_in_text scans for, plus
// whatever extensions a concrete executor declares on top (an apt-style
// executor adding "E: Unable to locate package", for instance).
var defaultErrorMarkers = []string{
	"fail",
	"fatal",
	"error",
	"no such file or directory",
	"command not found",
	"invalid",
	"denied",
}

// ErrorInText reports whether any stdout line (case-insensitive) contains
// one of the default error markers or any of the extra markers a subclass
// declares.
func ErrorInText(lines []string, extraMarkers []string) bool {
	markers := defaultErrorMarkers
	if len(extraMarkers) > 0 {
		markers = append(append([]string{}, defaultErrorMarkers...), extraMarkers...)
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, marker := range markers {
			if strings.Contains(lower, strings.ToLower(marker)) {
				return true
			}
		}
	}
	return false
}

// ClassifyFunc hooks let a concrete executor override the default
// classification behavior: CatchedError treats an apparent error as benign
// (e.g. "user already exists"), IsChanged reports whether the output
// indicates the system state actually changed.
type ClassifyFunc struct {
	ExtraErrorMarkers []string
	CatchedError      func(lines []string) bool
	IsChanged         func(lines []string) bool
}

// Outcome is the two-bit decision error_in_text/catched_error/is_changed
// produces, collapsed into the caller's choice of FAIL/CHANGED/SUCCESS.
type Outcome int

const (
	OutcomeFail Outcome = iota
	OutcomeChanged
	OutcomeSuccess
)

// Classify applies the tie-break rules: error_in_text trumps is_changed,
// catched_error trumps error_in_text.
func Classify(lines []string, hooks ClassifyFunc) Outcome {
	isError := ErrorInText(lines, hooks.ExtraErrorMarkers)
	if isError && hooks.CatchedError != nil && hooks.CatchedError(lines) {
		isError = false
	}
	if isError {
		return OutcomeFail
	}
	if hooks.IsChanged != nil && hooks.IsChanged(lines) {
		return OutcomeChanged
	}
	return OutcomeSuccess
}
