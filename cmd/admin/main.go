package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	persistlog "shipspace.io/internal/persistence/log"
	"shipspace.io/internal/sim/ship"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "metrics":
			metricsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	shipName := fs.String("ship", "", "ship name (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "ships")
	if *shipName != "" {
		base = filepath.Join(base, *shipName)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// auditCmd prints the audit entries matching the filters, oldest first.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	shipName := fs.String("ship", "", "ship name")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (optional)")
	session := fs.String("session", "", "session id filter (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	rejected := fs.Bool("rejected", false, "only rejected edits")
	_ = fs.Parse(args)

	if strings.TrimSpace(*shipName) == "" {
		fmt.Fprintln(os.Stderr, "missing -ship")
		os.Exit(2)
	}
	var f auditFilter
	f.since, f.to = *sinceTick, *toTick
	f.session = strings.TrimSpace(*session)
	f.rejected = *rejected
	if strings.TrimSpace(*aabb) != "" {
		min, max, err := parseAABB(*aabb)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -aabb:", err)
			os.Exit(2)
		}
		f.box, f.min, f.max = true, min, max
	}

	dir := filepath.Join(*dataDir, "ships", *shipName, "audit")
	files, err := persistlog.Files(dir, "audit")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit:", err)
		os.Exit(1)
	}
	var n int
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e ship.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if f.match(e) {
				printJSON(e)
				n++
			}
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read audit:", err)
			os.Exit(1)
		}
	}
	fmt.Fprintf(os.Stderr, "%d entries from %d files\n", n, len(files))
}

type auditFilter struct {
	since, to uint64
	session   string
	rejected  bool

	box      bool
	min, max [3]int
}

func (f auditFilter) match(e ship.AuditEntry) bool {
	if e.Tick < f.since || (f.to != 0 && e.Tick > f.to) {
		return false
	}
	if f.session != "" && e.SessionID != f.session {
		return false
	}
	if f.rejected && e.Accepted {
		return false
	}
	return !f.box || withinAABB(e.Pos, f.min, f.max)
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
