// Package mapreduce tallies box categories per page and across pages.
package mapreduce

import (
	"fmt"
	"sort"

	"github.com/dtnitsch/layout-editor/models"
)

// Map counts the boxes of one page by category.
func Map(boxes []models.Box) map[models.Category]int {
	counts := make(map[models.Category]int)
	for _, b := range boxes {
		counts[b.Category]++
	}
	return counts
}

// Reduce sums per-page counts into one map.
func Reduce(intermediate []map[models.Category]int) map[models.Category]int {
	finalResults := make(map[models.Category]int)

	for _, counts := range intermediate {
		for category, count := range counts {
			finalResults[category] += count
		}
	}

	return finalResults
}

// TopN returns the n most frequent categories as "category:count", ties
// broken by name. n <= 0 returns all of them.
func TopN(counts map[models.Category]int, n int) []string {
	type kv struct {
		Key   models.Category
		Value int
	}

	ss := make([]kv, 0, len(counts))
	for k, v := range counts {
		ss = append(ss, kv{k, v})
	}
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Value != ss[j].Value {
			return ss[i].Value > ss[j].Value
		}
		return ss[i].Key < ss[j].Key
	})

	if n > 0 && len(ss) > n {
		ss = ss[:n]
	}
	out := make([]string, 0, len(ss))
	for _, e := range ss {
		out = append(out, fmt.Sprintf("%s:%d", e.Key, e.Value))
	}
	return out
}
