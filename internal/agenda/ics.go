package agenda

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// Entry is one scheduled item extracted from a calendar file.
type Entry struct {
	Calendar string // source file path
	Summary  string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// iCalendar date layouts. TZID parameters are parsed in local time; the
// agenda view only needs day-level accuracy for display.
const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
	layoutDate     = "20060102"
)

// ParseICS extracts VEVENT entries from an iCalendar stream. It understands
// the subset an agenda needs: SUMMARY, DTSTART, DTEND, and RFC 5545 line
// folding. Events without a parseable DTSTART are skipped, not fatal — one
// malformed event must not hide the rest of the calendar.
func ParseICS(r io.Reader, calendar string) ([]Entry, error) {
	var (
		entries []Entry
		cur     Entry
		inEvent bool
	)

	lines, err := unfold(r)
	if err != nil {
		return nil, fmt.Errorf("agenda: reading %s: %w", calendar, err)
	}

	for _, line := range lines {
		switch {
		case line == "BEGIN:VEVENT":
			inEvent = true
			cur = Entry{Calendar: calendar}

		case line == "END:VEVENT":
			inEvent = false

			if !cur.Start.IsZero() {
				if cur.End.IsZero() {
					cur.End = cur.Start
				}

				entries = append(entries, cur)
			}

		case inEvent:
			applyProperty(&cur, line)
		}
	}

	return entries, nil
}

// unfold reads all lines, joining RFC 5545 folded continuations (lines
// beginning with a space or tab belong to the previous line). A read error
// is returned, not treated as end-of-input: a truncated parse must not be
// cached as the file's full contents.
func unfold(r io.Reader) ([]string, error) {
	var lines []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		if len(lines) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			lines[len(lines)-1] += line[1:]
			continue
		}

		lines = append(lines, line)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// applyProperty parses one content line into the entry under construction.
func applyProperty(e *Entry, line string) {
	name, params, value, ok := splitProperty(line)
	if !ok {
		return
	}

	switch name {
	case "SUMMARY":
		e.Summary = unescapeText(value)

	case "DTSTART":
		if t, allDay, err := parseICalTime(value, params); err == nil {
			e.Start = t
			e.AllDay = allDay
		}

	case "DTEND":
		if t, _, err := parseICalTime(value, params); err == nil {
			e.End = t
		}
	}
}

// splitProperty splits "NAME;PARAM=V;PARAM=V:value" into its parts.
func splitProperty(line string) (name string, params []string, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", nil, "", false
	}

	left := strings.Split(line[:idx], ";")

	return strings.ToUpper(left[0]), left[1:], line[idx+1:], true
}

// parseICalTime parses a DTSTART/DTEND value. VALUE=DATE marks an all-day
// entry; a trailing Z marks UTC; everything else is treated as local time.
func parseICalTime(value string, params []string) (t time.Time, allDay bool, err error) {
	for _, p := range params {
		if strings.EqualFold(p, "VALUE=DATE") {
			t, err = time.ParseInLocation(layoutDate, value, time.Local)
			return t, true, err
		}
	}

	if strings.HasSuffix(value, "Z") {
		t, err = time.Parse(layoutUTC, value)
		return t, false, err
	}

	t, err = time.ParseInLocation(layoutFloating, value, time.Local)
	if err != nil {
		// Some producers emit bare dates without VALUE=DATE.
		if d, dErr := time.ParseInLocation(layoutDate, value, time.Local); dErr == nil {
			return d, true, nil
		}

		return time.Time{}, false, fmt.Errorf("agenda: parsing time %q: %w", value, err)
	}

	return t, false, nil
}

// unescapeText reverses RFC 5545 TEXT escaping for display.
func unescapeText(s string) string {
	replacer := strings.NewReplacer(
		`\n`, "\n",
		`\N`, "\n",
		`\,`, ",",
		`\;`, ";",
		`\\`, `\`,
	)

	return replacer.Replace(s)
}
