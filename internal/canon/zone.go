package canon

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// zones memoizes resolved locations by the identifier they were requested under.
// time.LoadLocation reads the zoneinfo database on every call, so the parse
// path would otherwise hit the filesystem once per timestamp.
var zones sync.Map // map[string]zoneEntry

type zoneEntry struct {
	loc  *time.Location
	name string
}

// UTC is the canonical name of the UTC zone.
const UTC = "UTC"

// LoadZone resolves a zone identifier to a location and its canonical name.
//
// Accepted forms:
//   - "UTC", "Z" (any case) and "Etc/UTC"
//   - fixed offsets "+HH:MM", "-HH:MM", "+HHMM" and "+HH"
//   - any IANA name known to the zoneinfo database ("Europe/Paris")
//
// Safe for concurrent use.
func LoadZone(zone string) (*time.Location, string, error) {
	if e, ok := zones.Load(zone); ok {
		ze := e.(zoneEntry)
		return ze.loc, ze.name, nil
	}

	loc, name, err := resolveZone(zone)
	if err != nil {
		return nil, "", err
	}
	zones.Store(zone, zoneEntry{loc: loc, name: name})
	return loc, name, nil
}

// ValidZone reports whether zone resolves.
func ValidZone(zone string) bool {
	_, _, err := LoadZone(zone)
	return err == nil
}

func resolveZone(zone string) (*time.Location, string, error) {
	trimmed := strings.TrimSpace(zone)
	if trimmed == "" {
		return nil, "", &ZoneError{Zone: zone, Err: errors.New("empty zone identifier")}
	}

	switch strings.ToUpper(trimmed) {
	case "UTC", "Z", "ETC/UTC":
		return time.UTC, UTC, nil
	}

	if trimmed[0] == '+' || trimmed[0] == '-' {
		secs, name, ok := parseOffset(trimmed)
		if !ok {
			return nil, "", &ZoneError{Zone: zone, Err: errors.New("malformed offset")}
		}
		return time.FixedZone(name, secs), name, nil
	}

	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, "", &ZoneError{Zone: zone, Err: err}
	}
	return loc, loc.String(), nil
}

// parseOffset parses "+HH", "+HHMM" or "+HH:MM" into seconds east of UTC and
// the normalized "+HH:MM" name. Offsets beyond ±23:59 are rejected.
func parseOffset(s string) (int, string, bool) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(s[1:], ":", "")
	if len(digits) != 2 && len(digits) != 4 {
		return 0, "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, "", false
		}
	}
	hh, _ := strconv.Atoi(digits[:2])
	mm := 0
	if len(digits) == 4 {
		mm, _ = strconv.Atoi(digits[2:])
	}
	if hh > 23 || mm > 59 {
		return 0, "", false
	}
	return sign * (hh*3600 + mm*60), FormatOffset(sign * (hh*3600 + mm*60)), true
}

// FormatOffset renders seconds east of UTC as "+HH:MM".
func FormatOffset(secs int) string {
	sign := byte('+')
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	hh := secs / 3600
	mm := (secs % 3600) / 60
	return string([]byte{sign, byte('0' + hh/10), byte('0' + hh%10), ':', byte('0' + mm/10), byte('0' + mm%10)})
}
