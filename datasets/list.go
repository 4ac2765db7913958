package datasets

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Entry is one line of a list file.
type Entry struct {
	Key   string
	Label int
	Path  string
}

// ReadList parses a list file of "key<TAB>label<TAB>path" lines. Blank lines
// and lines starting with '#' are ignored; relative paths are resolved
// against the directory of the list.
func ReadList(filename string) ([]Entry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open list")
	}
	defer file.Close()

	dir := filepath.Dir(filename)
	var out []Entry
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		columns := strings.Split(text, "\t")
		if len(columns) != 3 {
			return nil, errors.Errorf("%s:%d: want 3 tab separated columns, got %d", filename, line, len(columns))
		}
		label, err := strconv.Atoi(columns[1])
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d: label", filename, line)
		}
		path := columns[2]
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		out = append(out, Entry{Key: columns[0], Label: label, Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read list %s", filename)
	}
	return out, nil
}

// WriteList writes entries in the format read by ReadList.
func WriteList(filename string, entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Key)
		b.WriteByte('\t')
		b.WriteString(strconv.Itoa(e.Label))
		b.WriteByte('\t')
		b.WriteString(e.Path)
		b.WriteByte('\n')
	}
	return errors.Wrap(os.WriteFile(filename, []byte(b.String()), 0644), "write list")
}

// Load reads a list file and decodes every recording it names. All files
// must be at sampleRate.
func Load(filename string, sampleRate int) ([]Recording, error) {
	entries, err := ReadList(filename)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.Wrap(ErrEmpty, filename)
	}
	out := make([]Recording, 0, len(entries))
	for _, e := range entries {
		samples, rate, err := LoadAudio(e.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "recording %s", e.Key)
		}
		if rate != sampleRate {
			return nil, errors.Errorf("recording %s: sample rate %d, want %d", e.Key, rate, sampleRate)
		}
		out = append(out, Recording{Key: e.Key, Label: e.Label, Samples: samples})
	}
	return out, nil
}
