package toolgen

import (
	"fmt"
	"sort"
)

// PrintToolSummary prints a human-readable summary of the operations a
// conversion will register: the total tool count and a per-tag
// breakdown. Useful with a dry run to inspect a description before
// serving it.
func PrintToolSummary(ops []Operation) {
	tagCount := map[string]int{}
	for _, op := range ops {
		for _, tag := range op.Tags {
			tagCount[tag]++
		}
	}
	fmt.Printf("Total tools: %d\n", len(ops))
	if len(tagCount) == 0 {
		return
	}
	tags := make([]string, 0, len(tagCount))
	for tag := range tagCount {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	fmt.Println("Tags:")
	for _, tag := range tags {
		fmt.Printf("  %s: %d\n", tag, tagCount[tag])
	}
}
