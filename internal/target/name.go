package target

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	qcowName = regexp.MustCompile(`asav([^\\/.]+)\.qcow2`)
	spaName  = regexp.MustCompile(`asa([^\\/.]+)\.SPA`)
	binName  = regexp.MustCompile(`asa([^\\/.]+)\.bin`)
)

// BinName derives a firmware identifier such as "asa924-k8.bin" or
// "asav962-7.qcow2" from any path that contains one, for example the path
// of an executable extracted from that firmware.
func BinName(s string) (string, error) {
	stem, format, err := parseName(s)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(format, stem), nil
}

// Version derives a dotted version from a firmware identifier. The first
// dash-separated element contributes one component per character, each
// following numeric element contributes one component, and the first
// non-numeric element ends the version.
//
//	asa924-k8.bin     -> 9.2.4
//	asa805-31-k8.bin  -> 8.0.5.31
//	asav962-7.qcow2   -> 9.6.2.7
func Version(s string) (string, error) {
	stem, _, err := parseName(s)
	if err != nil {
		return "", err
	}

	elems := strings.Split(stem, "-")

	parts := strings.Split(elems[0], "")
	for _, e := range elems[1:] {
		n, err := strconv.Atoi(e)
		if err != nil {
			break
		}

		parts = append(parts, strconv.Itoa(n))
	}

	return strings.Join(parts, "."), nil
}

func parseName(s string) (string, string, error) {
	var re *regexp.Regexp
	var format string

	switch {
	case strings.Contains(s, "asav"):
		re, format = qcowName, "asav%s.qcow2"
	case strings.Contains(s, "SPA"):
		re, format = spaName, "asa%s.SPA"
	default:
		re, format = binName, "asa%s.bin"
	}

	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", "", fmt.Errorf("could not find %s in %q",
			strings.Replace(format, "%s", "XXX", 1), s)
	}

	return m[1], format, nil
}
