package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadPoints reads a point cloud, one point per line with components
// separated by whitespace or commas. Blank lines and lines starting with '#'
// are skipped.
func ReadPoints(filename string, verbose bool) (points [][]float64, err error) {
	var file *os.File
	if file, err = os.Open(filename); err != nil {
		return nil, fmt.Errorf("unable to read point file %q: %w", filename, err)
	}
	defer file.Close()
	if points, err = ParsePoints(file); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if verbose {
		fmt.Printf("Read %d points from [%s]\n", len(points), filename)
	}
	return
}

func ParsePoints(r io.Reader) (points [][]float64, err error) {
	var (
		scanner = bufio.NewScanner(r)
		lineNo  int
		dims    int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		pt := make([]float64, len(fields))
		for i, f := range fields {
			if pt[i], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		if dims == 0 {
			dims = len(pt)
		} else if len(pt) != dims {
			return nil, fmt.Errorf("line %d: point has %d components, expected %d", lineNo, len(pt), dims)
		}
		points = append(points, pt)
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return
}

// WritePoints writes points in the format ReadPoints reads
func WritePoints(w io.Writer, points [][]float64) (err error) {
	bw := bufio.NewWriter(w)
	for _, pt := range points {
		for i, v := range pt {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
