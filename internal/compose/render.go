package compose

import (
	"fmt"
	"strings"
)

// Markdown renders the document:
//
//	# Context for: <task>
//
//	## <title> (relevance: 0.90)
//	<content>
//
// or, when no source was admitted, a single line naming the effective
// threshold in place of the blocks.
func (d *Document) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Context for: %s\n\n", d.Task)

	if len(d.Blocks) == 0 {
		fmt.Fprintf(&b, "*No sources met the relevance threshold of %.2f*\n", d.EffectiveThreshold)
		return b.String()
	}

	for i, blk := range d.Blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s (relevance: %.2f)\n%s", blk.Title, blk.Relevance, blk.Content)
	}
	b.WriteString("\n")
	return b.String()
}
