package waypoint

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/pkg/errors"
)

// Mission files use the QGC waypoint list text format, version 110.
const (
	fileHeader     = "QGC WPL 110"
	fileVersionMin = 110
)

// ErrPartialLoad marks a mission file whose tail was malformed. The items
// before the bad line were loaded.
var ErrPartialLoad = errors.New("waypoint file is corrupted, load only partly successful")

// Save writes the list in QGC WPL 110 format, re-stamping sequence numbers
// to list order.
func (l *List) Save(w io.Writer) error {
	if _, err := io.WriteString(w, fileHeader+"\r\n"); err != nil {
		return errors.Wrap(err, "writing waypoint file header")
	}
	l.restamp(0)
	for _, wp := range l.items {
		if err := writeItem(w, wp); err != nil {
			return errors.Wrapf(err, "writing waypoint %d", wp.Seq)
		}
	}
	return nil
}

func writeItem(w io.Writer, wp *Waypoint) error {
	_, err := fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\r\n",
		wp.Seq, b2i(wp.Current), int(wp.Frame), int(wp.Command),
		f32(wp.Param1), f32(wp.Param2), f32(wp.Param3), f32(wp.Param4),
		f64(wp.X), f64(wp.Y), f32(wp.Z), b2i(wp.Autocontinue))
	return err
}

// Load parses a QGC WPL stream. On a malformed body line it returns the
// items read so far together with ErrPartialLoad.
func Load(r io.Reader) ([]*Waypoint, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, errors.New("waypoint file is corrupt, version not detectable")
	}
	if err := checkHeader(sc.Text()); err != nil {
		return nil, err
	}

	var items []*Waypoint
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		wp, err := parseItem(line)
		if err != nil {
			return items, ErrPartialLoad
		}
		wp.Seq = uint16(len(items))
		items = append(items, wp)
	}
	if err := sc.Err(); err != nil {
		return items, errors.Wrap(err, "reading waypoint file")
	}
	return items, nil
}

func checkHeader(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return errors.New("waypoint file is corrupt, version not detectable")
	}
	version, err := strconv.Atoi(fields[2])
	if err != nil || fields[0] != "QGC" || fields[1] != "WPL" || version < fileVersionMin {
		return errors.Errorf("waypoint file version %q is not compatible", fields[2])
	}
	return nil
}

func parseItem(line string) (*Waypoint, error) {
	fields := strings.Fields(line)
	if len(fields) < 12 {
		return nil, errors.Errorf("waypoint line has %d fields, want 12", len(fields))
	}
	var (
		wp   Waypoint
		ints [3]int64
	)
	for i, idx := range []int{1, 2, 3} {
		v, err := strconv.ParseInt(fields[idx], 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", idx)
		}
		ints[i] = v
	}
	wp.Current = ints[0] != 0
	wp.Frame = common.MAV_FRAME(ints[1])
	wp.Command = common.MAV_CMD(ints[2])

	floats := make([]float64, 0, 7)
	for _, idx := range []int{4, 5, 6, 7, 8, 9, 10} {
		v, err := strconv.ParseFloat(fields[idx], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", idx)
		}
		floats = append(floats, v)
	}
	wp.Param1 = float32(floats[0])
	wp.Param2 = float32(floats[1])
	wp.Param3 = float32(floats[2])
	wp.Param4 = float32(floats[3])
	wp.X = floats[4]
	wp.Y = floats[5]
	wp.Z = float32(floats[6])

	ac, err := strconv.ParseInt(fields[11], 10, 32)
	if err != nil {
		return nil, errors.Wrap(err, "autocontinue field")
	}
	wp.Autocontinue = ac != 0
	return &wp, nil
}

// SaveFile writes the list to path, replacing any existing file.
func (l *List) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := l.Save(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

// LoadFile reads a mission from path. A partial result is returned with
// ErrPartialLoad when the file tail is malformed.
func LoadFile(path string) ([]*Waypoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return Load(f)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func f32(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func f64(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
