package emit

import (
	"fmt"
	"strings"

	"github.com/phobologic/actorbundle/internal/model"
)

// Readme renders README.md: the title, the readme override or description,
// a proxy notice when the actor needs a restricted proxy group, and the
// Output fields with their examples.
func Readme(c *model.Collector) string {
	body := c.Str("readme")
	if body == "" {
		body = c.Description()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", c.Title(), body)

	if proxy := c.Str("apify.proxyAllow"); proxy != "" {
		fmt.Fprintf(&b, "\n**BEWARE**: Requires access to \"%s\" proxy group.\n", proxy)
	}

	if c.Output != nil {
		b.WriteString("\n## Output example\n\n")
		for _, f := range c.Output.Fields {
			fmt.Fprintf(&b, "* **%s** `%s`", f.Name, f.Kind)
			if f.HasExample && f.Example != nil {
				fmt.Fprintf(&b, " e.g. *%v*", f.Example)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
