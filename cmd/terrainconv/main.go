// terrainconv converts a plain-text terrain grid into the compressed
// {mapid}.terrain.zst file the map loader reads.
//
// Input format:
//
//	# comments and blank lines are ignored
//	32768,32768          <- start x, start y
//	0x10000000,0x10040000,...   <- one row per y, one flag word per x
//
// Words accept decimal or 0x-prefixed hex. All rows must have the same length.
//
// Usage:
//
//	go run ./cmd/terrainconv maps/4.txt [outdir]
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/l1jgo/mapsim/internal/data"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: terrainconv <mapid>.txt [outdir]")
		os.Exit(2)
	}
	inputPath := os.Args[1]
	outDir := "map"
	if len(os.Args) >= 3 {
		outDir = os.Args[2]
	}

	mapID := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if _, err := strconv.Atoi(mapID); err != nil {
		fmt.Fprintf(os.Stderr, "error: file name %q is not a map id\n", filepath.Base(inputPath))
		os.Exit(1)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", inputPath, err)
		os.Exit(1)
	}
	t, err := parseGrid(bufio.NewScanner(f))
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output directory: %v\n", err)
		os.Exit(1)
	}
	outputPath := filepath.Join(outDir, mapID+data.TerrainExt)
	out, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	if err := data.WriteTerrain(out, t); err != nil {
		out.Close()
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error closing %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %dx%d terrain (start %d,%d) to %s\n", t.Width, t.Height, t.StartX, t.StartY, outputPath)
}

// parseGrid reads the origin line and the rows, then transposes them into
// the x-major word layout.
func parseGrid(sc *bufio.Scanner) (*data.TerrainData, error) {
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		t      data.TerrainData
		rows   [][]uint32
		header bool
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if !header {
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: expected start x,y", lineNo)
			}
			x, errX := strconv.Atoi(strings.TrimSpace(fields[0]))
			y, errY := strconv.Atoi(strings.TrimSpace(fields[1]))
			if errX != nil || errY != nil {
				return nil, fmt.Errorf("line %d: bad origin %q", lineNo, line)
			}
			t.StartX, t.StartY = x, y
			header = true
			continue
		}
		row := make([]uint32, len(fields))
		for i, s := range fields {
			v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d col %d: %w", lineNo, i+1, err)
			}
			row[i] = uint32(v)
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("line %d: %d columns, expected %d", lineNo, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no terrain rows")
	}

	t.Height = len(rows)
	t.Width = len(rows[0])
	t.Words = make([]uint32, t.Width*t.Height)
	for y, row := range rows {
		for x, w := range row {
			t.Words[x*t.Height+y] = w
		}
	}
	return &t, nil
}
