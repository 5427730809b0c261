package evaluation

import (
	"fmt"
	"strconv"
	"strings"
)

// Name returns the display name of a label index: names[label] when in range,
// otherwise the decimal index.
func Name(names []string, label int) string {
	if label >= 0 && label < len(names) {
		return names[label]
	}
	return strconv.Itoa(label)
}

// Report renders the per-class scores as a fixed-width text table, two
// decimals, followed by accuracy, macro and weighted averages.
func (r *Result) Report(names []string) string {
	const digits = 2
	width := len("weighted avg")
	rowNames := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		rowNames[i] = Name(names, c.Label)
		if len(rowNames[i]) > width {
			width = len(rowNames[i])
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s ", width, "")
	for _, h := range []string{"precision", "recall", "f1-score", "support"} {
		fmt.Fprintf(&b, " %9s", h)
	}
	b.WriteString("\n\n")

	row := func(name string, p, rc, f float64, support int) {
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n", width, name, digits, p, digits, rc, digits, f, support)
	}
	for i, c := range r.Classes {
		row(rowNames[i], c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.*f %9d\n", width, "accuracy", "", "", digits, r.Accuracy, r.N)
	row("macro avg", r.Macro.Precision, r.Macro.Recall, r.Macro.F1, r.Macro.Support)
	row("weighted avg", r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, r.Weighted.Support)
	return b.String()
}

// ConfusionNames returns display names for the axes of the confusion matrix.
func (r *Result) ConfusionNames(names []string) []string {
	out := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		out[i] = Name(names, l)
	}
	return out
}
