// Package checkpoint stores model snapshots as lzw compressed json.
package checkpoint

import "compress/lzw"
import "encoding/json"
import "fmt"
import "io"
import "os"
import "path/filepath"

import "github.com/neurlang/acoustic/model"
import "github.com/pkg/errors"

// Ext is the file extension of a snapshot.
const Ext = ".json.lzw"

// Path returns {dir}/{arch}_fold{fold}_{tag}.json.lzw.
func Path(dir, arch string, fold int, tag string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_fold%d_%s%s", arch, fold, tag, Ext))
}

// ErrBandMismatch is returned when a configured band count contradicts the
// one a snapshot was trained with.
var ErrBandMismatch = errors.New("band count differs from the checkpoint")

// Tensor is one stored parameter.
type Tensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Snapshot is the stored form of a model.
type Snapshot struct {
	Arch       string   `json:"arch"`
	NumClasses int      `json:"num_classes"`
	Hidden     int      `json:"hidden"`
	Bands      int      `json:"bands,omitempty"`
	Phase      int      `json:"phase,omitempty"`
	Params     []Tensor `json:"params"`
}

// Options are the constructor options that rebuild the snapshot's model.
func (s *Snapshot) Options() model.Options {
	return model.Options{NumClasses: s.NumClasses, Hidden: s.Hidden, Bands: s.Bands}
}

// SegmentBands returns the log-mel band count to extract for the snapshot's
// model. The stored count wins; configured is used only when the snapshot
// has none, and explicit marks a configured value the user asked for.
func (s *Snapshot) SegmentBands(configured int, explicit bool) (int, error) {
	if s.Bands <= 0 {
		return configured, nil
	}
	if explicit && configured != s.Bands {
		return 0, errors.Wrapf(ErrBandMismatch, "%s: configured %d, trained with %d", s.Arch, configured, s.Bands)
	}
	return s.Bands, nil
}

// Take copies the parameters of m.
func Take(m model.Trainable, o model.Options) *Snapshot {
	s := &Snapshot{
		Arch:       m.Arch(),
		NumClasses: m.NumClasses(),
		Hidden:     o.Hidden,
		Bands:      o.Bands,
	}
	if p, ok := m.(model.Phased); ok {
		s.Phase = p.Phase()
	}
	for _, p := range m.Params() {
		s.Params = append(s.Params, Tensor{
			Name:  p.Name,
			Shape: p.Shape(),
			Data:  p.Values(),
		})
	}
	return s
}

// Restore copies the snapshot parameters into m, matching them by name.
func (s *Snapshot) Restore(m model.Trainable) error {
	if m.Arch() != s.Arch {
		return errors.Errorf("snapshot of %s cannot restore %s", s.Arch, m.Arch())
	}
	stored := make(map[string]Tensor, len(s.Params))
	for _, t := range s.Params {
		stored[t.Name] = t
	}
	for _, p := range m.Params() {
		t, ok := stored[p.Name]
		if !ok {
			return errors.Errorf("%s: parameter %s missing", s.Arch, p.Name)
		}
		if fmt.Sprint(t.Shape) != fmt.Sprint(p.Shape()) || len(t.Data) != p.Len() {
			return errors.Errorf("%s: parameter %s has shape %v, want %v", s.Arch, p.Name, t.Shape, p.Shape())
		}
		if err := p.SetValues(t.Data); err != nil {
			return errors.Wrap(err, s.Arch)
		}
	}
	if p, ok := m.(model.Phased); ok && s.Phase != 0 {
		p.SetPhase(s.Phase)
	}
	return nil
}

// Write writes the compressed snapshot to w.
func (s *Snapshot) Write(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	err := json.NewEncoder(lw).Encode(s)
	if err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

// Read decodes a compressed snapshot from r.
func Read(r io.Reader) (*Snapshot, error) {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	var s Snapshot
	if err := json.NewDecoder(lr).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes a snapshot of m to name, overwriting it.
func Save(name string, m model.Trainable, o model.Options) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return errors.Wrap(err, "checkpoint dir")
	}
	file, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "create checkpoint")
	}
	err = Take(m, o).Write(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "write checkpoint %s", name)
}

// ReadFile reads the snapshot stored at name.
func ReadFile(name string) (*Snapshot, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open checkpoint")
	}
	defer file.Close()
	s, err := Read(file)
	return s, errors.Wrapf(err, "read checkpoint %s", name)
}

// Load rebuilds the model stored at name.
func Load(name string) (model.Trainable, *Snapshot, error) {
	s, err := ReadFile(name)
	if err != nil {
		return nil, nil, err
	}
	m, err := model.New(s.Arch, s.Options())
	if err != nil {
		return nil, nil, err
	}
	if err := s.Restore(m); err != nil {
		return nil, nil, err
	}
	return m, s, nil
}

// Resume restores m from name in place.
func Resume(m model.Trainable, name string) error {
	s, err := ReadFile(name)
	if err != nil {
		return err
	}
	return s.Restore(m)
}
