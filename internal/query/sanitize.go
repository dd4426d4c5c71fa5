package query

import "strings"

var stripper = strings.NewReplacer(
	`"`, " ",
	"“", " ",
	"”", " ",
	"`", " ",
	"(", " ",
	")", " ",
)

// Sanitize turns model output into a plain retrieval query: quote characters,
// parentheses and standalone AND/OR operators are removed and whitespace is collapsed.
func Sanitize(q string) string {
	fields := strings.Fields(stripper.Replace(q))
	out := fields[:0]
	for _, f := range fields {
		if f == "AND" || f == "OR" {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
