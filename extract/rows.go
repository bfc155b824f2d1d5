package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const maxRangeSpan = 4096

// PortRange expands "1-4,6,8-10" into [1 2 3 4 6 8 9 10]. Malformed segments are skipped.
func PortRange(s string) []int {
	ports := []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.Split(part, "-")
			if len(bounds) != 2 {
				continue
			}
			start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				continue
			}
			end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil || end < start || end-start > maxRangeSpan {
				continue
			}
			for p := start; p <= end; p++ {
				ports = append(ports, p)
			}
			continue
		}
		if p, err := strconv.Atoi(part); err == nil {
			ports = append(ports, p)
		}
	}
	return ports
}

// PortRangeIDs is PortRange returning port identifiers.
func PortRangeIDs(s string) []string {
	ids := []string{}
	for _, p := range PortRange(s) {
		ids = append(ids, strconv.Itoa(p))
	}
	return ids
}

// LabelCell returns the text of the cell following the cell that starts with label.
func LabelCell(content, label string) (string, bool) {
	re := compile(`(?is)` + regexp.QuoteMeta(label) + `[^<]*</td>\s*<td[^>]*>([^<]+)`)
	m := re.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	value := strings.TrimSpace(m[1])
	return value, value != ""
}

var (
	rowPattern     = regexp.MustCompile(`(?is)<tr\b[^>]*>(.*?)</tr>`)
	centeredCell   = regexp.MustCompile(`(?is)<td[^>]*>\s*<div align=center>\s*([^<]*?)\s*</div>\s*</td>`)
	vlanTypeMarker = regexp.MustCompile(`(?i)^(default|static)$`)
	statusRow      = regexp.MustCompile(`(?is)<a href='US/(\d+)/rpvlanstatusStatisticsDetail\.html'[^>]*>\s*\d+\s*</a>` +
		`.*?<div align=center>\s*(\d+)\s*</div>` +
		`.*?<div align=center>\s*([^<]*?)\s*</div>` +
		`.*?<div align=center>\s*([^<]*?)\s*</div>` +
		`.*?<div align=center>\s*([^<]*?)\s*</div>`)
)

// TagLayout describes where one dialect puts the cells of a VLAN list row.
// The cells are searched left to right: delete checkbox, VID, active, name.
type TagLayout struct {
	// IndexField names the delete checkbox whose ?N value addresses the row.
	IndexField string
	VID        *regexp.Regexp
	// Active is optional, rows default to active when it is nil or missing.
	Active      *regexp.Regexp
	ActiveValue string
	Name        *regexp.Regexp
}

type TagRow struct {
	Index  string
	VID    int
	Active bool
	Name   string
}

// TagRows extracts one record per table row that carries a VID.
func TagRows(content string, layout TagLayout) []TagRow {
	var rows []TagRow
	for _, m := range rowPattern.FindAllStringSubmatch(content, -1) {
		if row, ok := tagRow(m[1], layout); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func tagRow(row string, layout TagLayout) (TagRow, bool) {
	r := TagRow{Active: true}
	pos := 0

	if layout.IndexField != "" {
		re := namePattern(regexp.QuoteMeta(layout.IndexField))
		for _, loc := range inputPattern.FindAllStringIndex(row, -1) {
			tag := row[loc[0]:loc[1]]
			name, ok := Attr(tag, "name")
			if !ok || !re.MatchString(name) {
				continue
			}
			if value, ok := Attr(tag, "value"); ok {
				r.Index = strings.TrimPrefix(value, "?")
				pos = loc[1]
			}
			break
		}
	}

	loc := layout.VID.FindStringSubmatchIndex(row[pos:])
	if loc == nil {
		return r, false
	}
	vid, err := strconv.Atoi(strings.TrimSpace(row[pos+loc[2] : pos+loc[3]]))
	if err != nil {
		return r, false
	}
	r.VID = vid
	pos += loc[1]

	if layout.Active != nil {
		if loc := layout.Active.FindStringSubmatchIndex(row[pos:]); loc != nil {
			r.Active = strings.EqualFold(strings.TrimSpace(row[pos+loc[2]:pos+loc[3]]), layout.ActiveValue)
			pos += loc[1]
		}
	}

	if loc := layout.Name.FindStringSubmatchIndex(row[pos:]); loc != nil {
		r.Name = strings.TrimSpace(row[pos+loc[2] : pos+loc[3]])
	}
	return r, true
}

// CenteredCells returns the text of every <td><div align=center> cell in order.
func CenteredCells(content string) []string {
	var cells []string
	for _, m := range centeredCell.FindAllStringSubmatch(content, -1) {
		cells = append(cells, strings.TrimSpace(m[1]))
	}
	return cells
}

type Row struct {
	Key   string
	Cells []string
}

// CheckboxRows splits content at each checkbox called name and returns the
// first cols centered cells following it. Rows with fewer cells are skipped.
func CheckboxRows(content, name string, cols int) []Row {
	re := namePattern(regexp.QuoteMeta(name))
	type anchor struct {
		key        string
		start, end int
	}
	var anchors []anchor
	for _, loc := range inputPattern.FindAllStringIndex(content, -1) {
		tag := content[loc[0]:loc[1]]
		n, ok := Attr(tag, "name")
		if !ok || !re.MatchString(n) {
			continue
		}
		value, ok := Attr(tag, "value")
		if !ok {
			continue
		}
		anchors = append(anchors, anchor{key: value, start: loc[0], end: loc[1]})
	}

	var rows []Row
	for i, a := range anchors {
		stop := len(content)
		if i+1 < len(anchors) {
			stop = anchors[i+1].start
		}
		cells := CenteredCells(content[a.end:stop])
		if len(cells) < cols {
			continue
		}
		rows = append(rows, Row{Key: a.key, Cells: cells[:cols]})
	}
	return rows
}

// TypedVLANRows groups the centered cells of a VLAN list into (VID, name)
// rows, recognised by a trailing Default/Static type cell.
func TypedVLANRows(content string) []TagRow {
	cells := CenteredCells(content)
	var rows []TagRow
	for i := 0; i+2 < len(cells); {
		vid, err := strconv.Atoi(cells[i])
		if err != nil || !vlanTypeMarker.MatchString(cells[i+2]) {
			i++
			continue
		}
		rows = append(rows, TagRow{
			Index:  cells[i],
			VID:    vid,
			Active: true,
			Name:   cells[i+1],
		})
		i += 3
	}
	return rows
}

type StatusRow struct {
	VID      int
	Name     string
	Untagged []string
	Tagged   []string
}

// StatusRows parses the VLAN status table listing port ranges per VLAN.
func StatusRows(content string) []StatusRow {
	var rows []StatusRow
	for _, m := range statusRow.FindAllStringSubmatch(content, -1) {
		vid, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rows = append(rows, StatusRow{
			VID:      vid,
			Name:     m[3],
			Untagged: PortRangeIDs(m[4]),
			Tagged:   PortRangeIDs(m[5]),
		})
	}
	return rows
}
