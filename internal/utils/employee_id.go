package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const employeeIDPrefix = "EMP"

// NextEmployeeID returns the id following last ("EMP007" -> "EMP008").
// An empty or unparsable last id starts the sequence at EMP001.
func NextEmployeeID(last string) string {
	n := 0
	if strings.HasPrefix(last, employeeIDPrefix) {
		if v, err := strconv.Atoi(last[len(employeeIDPrefix):]); err == nil && v > 0 {
			n = v
		}
	}
	return fmt.Sprintf("%s%03d", employeeIDPrefix, n+1)
}
