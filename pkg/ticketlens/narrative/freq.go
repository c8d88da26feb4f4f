package narrative

import "sort"

type freq struct {
	value string
	count int
}

// rank counts values and orders them by descending count, ties in first-seen order.
func rank(values []string) []freq {
	index := make(map[string]int)
	var out []freq
	for _, v := range values {
		if i, ok := index[v]; ok {
			out[i].count++
			continue
		}
		index[v] = len(out)
		out = append(out, freq{value: v, count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].count > out[j].count
	})
	return out
}
