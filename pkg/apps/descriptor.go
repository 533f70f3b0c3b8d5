// Package apps discovers launchable app folders. A folder named
// "<category>-<label>" under a scan root is one app; underscores in the label
// become spaces in its display name.
package apps

import "sort"

// AppDescriptor identifies one launchable app. Path is its identity.
type AppDescriptor struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Framework bool   `json:"framework"`
}

// CategoryIndex groups descriptors by category. Each slice keeps directory
// listing order.
type CategoryIndex map[string][]AppDescriptor

// Categories returns the category names in sorted order.
func (idx CategoryIndex) Categories() []string {
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of apps across all categories.
func (idx CategoryIndex) Len() int {
	n := 0
	for _, list := range idx {
		n += len(list)
	}
	return n
}

// Find returns the descriptor with the given path.
func (idx CategoryIndex) Find(path string) (AppDescriptor, bool) {
	for _, list := range idx {
		for _, d := range list {
			if d.Path == path {
				return d, true
			}
		}
	}
	return AppDescriptor{}, false
}
