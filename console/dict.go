package console

import "sort"

// DictDataToOptions converts dictionary entries to select options ordered
// by SortOrder. With filterStatus set, only enabled entries (status "1")
// are kept. The input slice is not modified.
func DictDataToOptions(data []DictData, filterStatus bool) []DictOption {
	rows := make([]DictData, 0, len(data))
	for _, d := range data {
		if filterStatus && d.Status != "1" {
			continue
		}
		rows = append(rows, d)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SortOrder < rows[j].SortOrder
	})

	out := make([]DictOption, len(rows))
	for i, d := range rows {
		out[i] = DictOption{Label: d.Label, Value: d.Value}
	}
	return out
}
