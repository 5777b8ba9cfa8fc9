package cache

import (
	"os"
	"strconv"
	"strings"
)

// ArchiveTotals tallies repositories that were archived out of the live
// cache but whose contributions should still count.
type ArchiveTotals struct {
	AddedLOC   int
	DeletedLOC int
	NetLOC     int
	Commits    int
	Repos      int
}

// Archive layout: 7 preamble lines, data rows, then a 3-line trailer whose
// last row carries a final commit count (possibly comma-terminated).
const (
	archivePreambleLines = 7
	archiveTrailerLines  = 3
)

// ReadArchive parses the repository archive file. A missing or undersized
// file yields zero totals.
func ReadArchive(path string) (ArchiveTotals, error) {
	var totals ArchiveTotals

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return totals, nil
	}

	lines, err := readLines(path)
	if err != nil {
		return totals, err
	}
	if len(lines) < archivePreambleLines+archiveTrailerLines {
		return totals, nil
	}

	data := lines[archivePreambleLines : len(lines)-archiveTrailerLines]
	totals.Repos = len(data)

	for _, line := range data {
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}
		if n, err := strconv.Atoi(parts[2]); err == nil {
			totals.Commits += n
		}
		if n, err := strconv.Atoi(parts[3]); err == nil {
			totals.AddedLOC += n
		}
		if n, err := strconv.Atoi(parts[4]); err == nil {
			totals.DeletedLOC += n
		}
	}

	// The trailer's last row repeats a commit count, sometimes with a
	// trailing comma.
	last := strings.Fields(lines[len(lines)-1])
	if len(last) >= 5 {
		if n, err := strconv.Atoi(strings.TrimSuffix(last[4], ",")); err == nil {
			totals.Commits += n
		}
	}

	totals.NetLOC = totals.AddedLOC - totals.DeletedLOC
	return totals, nil
}
