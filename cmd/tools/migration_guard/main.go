package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
)

// migrationGuard checks that every migration has an up and a down file and that
// versions run 1..n without gaps. Exit code 0 = ok, 1 = violation, 2 = other error.
func main() {
	dir := flag.String("dir", "internal/db/migrations", "migration directory to scan")
	flag.Parse()

	violations, err := check(os.DirFS(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "migration_guard error: %v\n", err)
		os.Exit(2)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "VIOLATION: %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("migration_guard: OK")
}

var reMigration = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

type migration struct {
	name string
	up   bool
	down bool
}

func check(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var violations []string
	byVersion := map[int]*migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := reMigration.FindStringSubmatch(e.Name())
		if m == nil {
			violations = append(violations, fmt.Sprintf("%s: name must look like 0001_name.up.sql", e.Name()))
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, err
		}
		mig, ok := byVersion[version]
		if !ok {
			mig = &migration{name: m[2]}
			byVersion[version] = mig
		}
		if mig.name != m[2] {
			violations = append(violations, fmt.Sprintf("%s: version %d already used by %q", e.Name(), version, mig.name))
			continue
		}
		empty, err := isEmpty(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		if empty {
			violations = append(violations, fmt.Sprintf("%s: file is empty", e.Name()))
		}
		if m[3] == "up" {
			mig.up = true
		} else {
			mig.down = true
		}
	}

	versions := make([]int, 0, len(byVersion))
	for v := range byVersion {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	for i, v := range versions {
		mig := byVersion[v]
		if v != i+1 {
			violations = append(violations, fmt.Sprintf("%04d_%s: expected version %04d", v, mig.name, i+1))
		}
		if !mig.up {
			violations = append(violations, fmt.Sprintf("%04d_%s: missing up migration", v, mig.name))
		}
		if !mig.down {
			violations = append(violations, fmt.Sprintf("%04d_%s: missing down migration", v, mig.name))
		}
	}
	return violations, nil
}

func isEmpty(fsys fs.FS, name string) (bool, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false, err
	}
	for _, b := range data {
		if b != ' ' && b != '\n' && b != '\t' && b != '\r' {
			return false, nil
		}
	}
	return true, nil
}
