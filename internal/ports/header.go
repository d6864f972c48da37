package ports

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// Verilator declares model ports with width-specific macros, e.g.
//
//	VL_IN8(&clk,0,0);
//	VL_OUT16(&sum,15,0);
//	VL_INW(&wide,127,0,4);
var headerPort = regexp.MustCompile(`VL_(IN|OUT)(?:8|16|64|W)?\(\s*&?(\w+)\s*,\s*(\d+)\s*,\s*(\d+)`)

// ParseHeader extracts port declarations from a Verilator-generated model
// header. Ports are returned in the order they appear, wide (VL_INW/VL_OUTW)
// ports included.
func ParseHeader(r io.Reader) ([]PortInfo, error) {
	var decls []PortInfo
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		m := headerPort.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		msb, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid msb %q: %w", line, m[3], err)
		}
		lsb, err := strconv.Atoi(m[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid lsb %q: %w", line, m[4], err)
		}
		if msb < lsb {
			return nil, fmt.Errorf("line %d: port %s has msb %d below lsb %d", line, m[2], msb, lsb)
		}
		decls = append(decls, PortInfo{
			Name:    m[2],
			Width:   msb - lsb + 1,
			IsInput: m[1] == "IN",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return decls, nil
}
