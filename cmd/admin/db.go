package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	shipName := fs.String("ship", "", "ship name (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	session := fs.String("session", "", "session_id filter (edits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*shipName) == "" {
			fmt.Fprintln(os.Stderr, "missing -ship or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "ships", *shipName, "index", "ship.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,ship_id,chunks,zones,entities,air_held FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64   `json:"tick"`
				Path     string  `json:"path"`
				ShipID   string  `json:"ship_id"`
				Chunks   int     `json:"chunks"`
				Zones    int     `json:"zones"`
				Entities int     `json:"entities"`
				AirHeld  float64 `json:"air_held"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.ShipID, &r.Chunks, &r.Zones, &r.Entities, &r.AirHeld); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		exitOnRowsErr(rows)

	case "ticks":
		rows, err := db.Query(`SELECT tick,full_rebuilds,fast_unifys,fast_nosplits,false_splits,zones,air_held,edits FROM ticks ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick         int64   `json:"tick"`
				FullRebuilds int64   `json:"full_rebuilds"`
				FastUnifys   int64   `json:"fast_unifys"`
				FastNoSplits int64   `json:"fast_nosplits"`
				FalseSplits  int64   `json:"false_splits"`
				Zones        int     `json:"zones"`
				AirHeld      float64 `json:"air_held"`
				Edits        int     `json:"edits"`
			}
			if err := rows.Scan(&r.Tick, &r.FullRebuilds, &r.FastUnifys, &r.FastNoSplits, &r.FalseSplits, &r.Zones, &r.AirHeld, &r.Edits); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		exitOnRowsErr(rows)

	case "edits":
		query := `SELECT tick,session_id,edit_id,op,x,y,z,accepted,COALESCE(code,'') FROM edits ORDER BY tick DESC, seq DESC LIMIT ?`
		qargs := []any{*limit}
		if s := strings.TrimSpace(*session); s != "" {
			query = `SELECT tick,session_id,edit_id,op,x,y,z,accepted,COALESCE(code,'') FROM edits WHERE session_id=? ORDER BY tick DESC, seq DESC LIMIT ?`
			qargs = []any{s, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick      int64  `json:"tick"`
				SessionID string `json:"session_id"`
				EditID    string `json:"edit_id"`
				Op        string `json:"op"`
				X         int    `json:"x"`
				Y         int    `json:"y"`
				Z         int    `json:"z"`
				Accepted  bool   `json:"accepted"`
				Code      string `json:"code,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.SessionID, &r.EditID, &r.Op, &r.X, &r.Y, &r.Z, &r.Accepted, &r.Code); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		exitOnRowsErr(rows)

	case "tuning":
		var v, digest string
		if err := db.QueryRow(`SELECT value FROM meta WHERE key='tuning'`).Scan(&v); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		_ = db.QueryRow(`SELECT value FROM meta WHERE key='tuning_digest'`).Scan(&digest)
		fmt.Println(v)
		fmt.Fprintln(os.Stderr, "digest:", digest)

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-ship SHIP|-db PATH] [-limit N] snapshots|ticks|edits|tuning")
		os.Exit(2)
	}
}

func exitOnRowsErr(rows *sql.Rows) {
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}
