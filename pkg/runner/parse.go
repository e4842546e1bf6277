package runner

import (
	"fmt"
	"strconv"
	"strings"
)

// ZoneInfo is one entry from the zoneadm listing
type ZoneInfo struct {
	ID     int // -1 when the zone is not running
	Name   string
	State  string
	Path   string
	UUID   string
	Brand  string
	IPType string
}

// ParseZoneList parses `zoneadm list -cp` output: colon-delimited records of
// id:name:state:path:uuid:brand:ip-type
func ParseZoneList(lines []string) ([]ZoneInfo, error) {
	var zones []ZoneInfo
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 7 {
			return nil, fmt.Errorf("malformed zone list line %q", line)
		}
		id := -1
		if fields[0] != "-" {
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("malformed zone id in %q", line)
			}
			id = n
		}
		zones = append(zones, ZoneInfo{
			ID:     id,
			Name:   fields[1],
			State:  fields[2],
			Path:   fields[3],
			UUID:   fields[4],
			Brand:  fields[5],
			IPType: fields[6],
		})
	}
	return zones, nil
}

// SwapUsage holds the used and available swap figures in kilobytes
type SwapUsage struct {
	UsedKB      uint64
	AvailableKB uint64
}

// ParseSwap extracts the used and available figures from `swap -s` output:
//
//	total: 1774912k bytes allocated + 240928k reserved = 2015840k used, 14230588k available
func ParseSwap(line string) (SwapUsage, error) {
	var usage SwapUsage
	fields := strings.Fields(line)
	for i, field := range fields {
		if i == 0 {
			continue
		}
		var err error
		switch strings.TrimSuffix(field, ",") {
		case "used":
			usage.UsedKB, err = parseKB(fields[i-1])
		case "available":
			usage.AvailableKB, err = parseKB(fields[i-1])
		}
		if err != nil {
			return SwapUsage{}, fmt.Errorf("malformed swap figure in %q", line)
		}
	}
	if usage.AvailableKB == 0 && usage.UsedKB == 0 {
		return SwapUsage{}, fmt.Errorf("no swap figures in %q", line)
	}
	return usage, nil
}

func parseKB(field string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSuffix(strings.TrimSuffix(field, ","), "k"), 10, 64)
}

// ParseSchedulerClass extracts the default scheduling class from
// `dispadmin -d` output ("FSS	(Fair Share)")
func ParseSchedulerClass(lines []string) (string, error) {
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("no scheduler class in dispadmin output")
}
