package controller

import (
	"bufio"
	"strings"
)

// writeEvent frames item as one server-sent event. Every line of a multi-line
// item gets its own data field so clients reassemble it verbatim.
func writeEvent(w *bufio.Writer, item string) error {
	for _, line := range strings.Split(item, "\n") {
		if _, err := w.WriteString("data: " + line + "\n"); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	return w.Flush()
}
