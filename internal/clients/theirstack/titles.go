package theirstack

import (
	"encoding/json"
	"fmt"
	"github.com/samber/lo"
	"os"
	"sort"
	"strings"
)

// LoadTitles merges the titles of a JSON file into base. The file holds either
// a flat list or an object of lists keyed by group. Duplicates are removed
// ignoring case, the first spelling wins. An empty path returns base.
func LoadTitles(path string, base []string) ([]string, error) {

	titles := append([]string{}, base...)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading titles file %s: %w", path, err)
		}
		fromFile, err := parseTitles(data)
		if err != nil {
			return nil, fmt.Errorf("error parsing titles file %s: %w", path, err)
		}
		titles = append(titles, fromFile...)
	}

	titles = lo.Map(titles, func(title string, _ int) string { return strings.TrimSpace(title) })
	titles = lo.Compact(titles)
	return lo.UniqBy(titles, strings.ToLower), nil
}

func parseTitles(data []byte) ([]string, error) {

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var groups map[string][]string
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}

	keys := lo.Keys(groups)
	sort.Strings(keys)

	var titles []string
	for _, key := range keys {
		titles = append(titles, groups[key]...)
	}
	return titles, nil
}
