package facts

import "strings"

// FilterIndexByPaths returns a new Index containing only rows whose file path
// equals one of paths or lies under one of them as a directory.
func FilterIndexByPaths(idx Index, paths []string) Index {
	if len(paths) == 0 {
		return NewIndex(nil)
	}
	var rows []ModuleRow
	for _, row := range idx.Modules {
		if matchesAnyPath(row.FilePath, paths) {
			rows = append(rows, row)
		}
	}
	return NewIndex(rows)
}

// FilterDeltaByPaths returns a new Delta containing only rows for the given paths.
func FilterDeltaByPaths(delta Delta, paths []string) Delta {
	out := Delta{Added: []ModuleRow{}, Removed: []ModuleRow{}, Changed: []Change{}}
	if len(paths) == 0 {
		return out
	}
	for _, row := range delta.Added {
		if matchesAnyPath(row.FilePath, paths) {
			out.Added = append(out.Added, row)
		}
	}
	for _, row := range delta.Removed {
		if matchesAnyPath(row.FilePath, paths) {
			out.Removed = append(out.Removed, row)
		}
	}
	for _, c := range delta.Changed {
		if matchesAnyPath(c.After.FilePath, paths) {
			out.Changed = append(out.Changed, c)
		}
	}
	return out
}

func matchesAnyPath(file string, paths []string) bool {
	for _, p := range paths {
		if file == p {
			return true
		}
		if strings.HasPrefix(file, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
