// Package channeltag maps channel numbers and base tags to and from the
// prefixed tag convention used by the demux and mux routing nodes.
//
// A channel is a tag prefix "C<N>__" prepended to a base tag: base "FRAME" on
// channel 1 becomes "C1__FRAME".
package channeltag

import (
	"fmt"
	"strconv"
	"strings"
)

const separator = "__"

// Format builds the prefixed tag for a channel number and base tag.
func Format(channel int, baseTag string) string {
	return fmt.Sprintf("C%d%s%s", channel, separator, baseTag)
}

// Parse splits a prefixed tag into its channel number and base tag. The
// second return is false when tag does not follow the channel convention.
func Parse(tag string) (channel int, baseTag string, ok bool) {
	if len(tag) < 2 || tag[0] != 'C' {
		return 0, "", false
	}
	rest := tag[1:]
	idx := strings.Index(rest, separator)
	if idx <= 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(rest[:idx])
	if err != nil || n < 0 {
		return 0, "", false
	}
	return n, rest[idx+len(separator):], true
}

// Count returns how many distinct channels the given tags span: one past the
// highest channel number found, or zero when no tag follows the convention.
func Count(tags []string) int {
	max := -1
	for _, tag := range tags {
		if n, _, ok := Parse(tag); ok && n > max {
			max = n
		}
	}
	return max + 1
}
