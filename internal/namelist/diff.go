package namelist

import "sort"

// Absent marks a variable that does not exist on one side of a diff. It is
// distinct from an empty value, which means the variable is set to ''.
const Absent = "<absent>"

// Change is one variable whose value differs between two snapshots.
type Change struct {
	File  string
	Group string
	Var   string
	Old   string
	New   string
}

// Key identifies a namelist variable across runs.
type Key struct {
	File  string
	Group string
	Var   string
}

// Diff compares two snapshots of a single namelist file. It is a pure
// function of its inputs: equal snapshots yield an empty diff, variables
// present only in new have Old == Absent, and variables present only in old
// have New == Absent. Changes are sorted by group then variable.
func Diff(file string, old, new Snapshot) []Change {
	var changes []Change

	for group, vars := range new {
		for name, newVal := range vars {
			oldVal, ok := old.Lookup(group, name)
			switch {
			case !ok:
				changes = append(changes, Change{file, group, name, Absent, newVal})
			case oldVal != newVal:
				changes = append(changes, Change{file, group, name, oldVal, newVal})
			}
		}
	}
	for group, vars := range old {
		for name, oldVal := range vars {
			if _, ok := new.Lookup(group, name); !ok {
				changes = append(changes, Change{file, group, name, oldVal, Absent})
			}
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Group != changes[j].Group {
			return changes[i].Group < changes[j].Group
		}
		return changes[i].Var < changes[j].Var
	})
	return changes
}

// DiffSets diffs every file that appears in either set. A file missing from
// one side is treated as an empty snapshot, so its variables show as added
// or removed rather than being silently dropped.
func DiffSets(old, new Set) []Change {
	files := map[string]bool{}
	for f := range old {
		files[f] = true
	}
	for f := range new {
		files[f] = true
	}

	names := make([]string, 0, len(files))
	for f := range files {
		names = append(names, f)
	}
	sort.Strings(names)

	var changes []Change
	for _, f := range names {
		changes = append(changes, Diff(f, old[f], new[f])...)
	}
	return changes
}

// Union collects the sorted set of variable keys touched by any change.
// The report assembler uses it to derive one output column per variable
// that changed anywhere in the run sequence.
func Union(changes ...[]Change) []Key {
	seen := map[Key]bool{}
	for _, cs := range changes {
		for _, c := range cs {
			seen[Key{c.File, c.Group, c.Var}] = true
		}
	}
	keys := make([]Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].File != keys[j].File {
			return keys[i].File < keys[j].File
		}
		if keys[i].Group != keys[j].Group {
			return keys[i].Group < keys[j].Group
		}
		return keys[i].Var < keys[j].Var
	})
	return keys
}
