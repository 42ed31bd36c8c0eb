package queue

import "strings"

const exceptionSummaryLimit = 100

// SummarizeException keeps the first line of a captured error, trimmed and capped at 100 bytes.
func SummarizeException(exception string) string {
	firstLine, _, _ := strings.Cut(exception, "\n")
	firstLine = strings.TrimSpace(firstLine)

	if len(firstLine) > exceptionSummaryLimit {
		return firstLine[:exceptionSummaryLimit] + "..."
	}
	return firstLine
}
