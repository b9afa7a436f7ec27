// Package luaparser extracts depot information from unlock scripts without
// executing them. The scripts are line-oriented lua with addappid/addtoken
// calls and comment annotations carrying names, DLC sections and sizes.
package luaparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DepotRecord is a single depot declaration recovered from a script.
type DepotRecord struct {
	DepotID      string
	Name         string
	SizeBytes    int64
	IsTokenBased bool
	DLCAppID     string
	DLCName      string
}

var (
	tokenRe    = regexp.MustCompile(`^addtoken\((\d+)`)
	dlcRe      = regexp.MustCompile(`--\s*(.+?)\s*\(AppID:\s*(\d+)\)`)
	depotRe    = regexp.MustCompile(`^addappid\((\d+)(?:,.*?)?\)\s*--\s*(.+)`)
	depotIDRe  = regexp.MustCompile(`^addappid\((\d+)`)
	sizeRe     = regexp.MustCompile(`--\s*Size:\s*[\d.]+\s*[KMGT]?B\s*\((\d+)\s*bytes\)`)
	depotKeyRe = regexp.MustCompile(`^addappid\((\d+),\s*\d+,\s*"([a-f0-9]+)"\)`)
)

// sizeLookback is how many lines above a size annotation we search for the
// depot declaration it belongs to.
const sizeLookback = 5

// ParseTokenAppIDs returns the set of app ids declared with addtoken().
// Depots gated by these ids need token handling on top of a decryption key.
func ParseTokenAppIDs(script string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, line := range strings.Split(script, "\n") {
		if m := tokenRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			tokens[m[1]] = struct{}{}
		}
	}
	return tokens
}

// ParseDepots scans a script and returns one record per distinct numeric
// depot id, in first-seen order. Later duplicate declarations are ignored.
// Malformed lines are skipped; the function never fails on content.
func ParseDepots(script, mainAppID string) []DepotRecord {
	lines := strings.Split(script, "\n")
	tokens := ParseTokenAppIDs(script)

	byID := make(map[string]int)
	var records []DepotRecord

	// Current DLC section, updated by "<name> (AppID: <id>)" comments and
	// cleared again when the base-game section starts.
	var dlcID, dlcName string

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if m := dlcRe.FindStringSubmatch(line); m != nil {
			if m[2] == mainAppID {
				dlcID, dlcName = "", ""
			} else {
				dlcName = strings.TrimSpace(m[1])
				dlcID = m[2]
			}
			continue
		}
		if strings.HasPrefix(line, "-- Base") || strings.Contains(line, "(Base Game)") {
			dlcID, dlcName = "", ""
			continue
		}

		m := depotRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		depotID := m[1]
		if _, seen := byID[depotID]; seen {
			continue
		}
		_, tokenBased := tokens[depotID]
		if !tokenBased && dlcID != "" {
			_, tokenBased = tokens[dlcID]
		}
		byID[depotID] = len(records)
		records = append(records, DepotRecord{
			DepotID:      depotID,
			Name:         strings.TrimSpace(m[2]),
			IsTokenBased: tokenBased,
			DLCAppID:     dlcID,
			DLCName:      dlcName,
		})
	}

	// Size annotations appear a few lines below the declaration they
	// describe; attach each to the nearest preceding depot line.
	for i, raw := range lines {
		m := sizeRe.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		size, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		for j := i - 1; j >= 0 && j >= i-sizeLookback; j-- {
			dm := depotIDRe.FindStringSubmatch(strings.TrimSpace(lines[j]))
			if dm == nil {
				continue
			}
			if idx, ok := byID[dm[1]]; ok {
				records[idx].SizeBytes = size
			}
			break
		}
	}

	return records
}

// ParseDeclaredAppIDs returns every distinct id passed to addappid(), in
// first-seen order, regardless of comments or key arguments.
func ParseDeclaredAppIDs(script string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, line := range strings.Split(script, "\n") {
		m := depotIDRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

// ExtractDepotKeys returns depot id -> hex decryption key for every
// addappid(<id>, <flags>, "<key>") statement in the script.
func ExtractDepotKeys(script string) map[string]string {
	keys := make(map[string]string)
	for _, line := range strings.Split(script, "\n") {
		if m := depotKeyRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			keys[m[1]] = m[2]
		}
	}
	return keys
}

// CalculateTotalSize sums the sizes of all records.
func CalculateTotalSize(records []DepotRecord) int64 {
	var total int64
	for _, r := range records {
		total += r.SizeBytes
	}
	return total
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with binary units and up to two decimal
// places, e.g. "12.34 GB".
func FormatSize(bytes int64) string {
	v := float64(bytes)
	order := 0
	for v >= 1024 && order < len(sizeUnits)-1 {
		v /= 1024
		order++
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return fmt.Sprintf("%s %s", s, sizeUnits[order])
}
