package sentimen

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Names of the files a Model is persisted as.
const (
	SpaceAsset = "space.gob"
	BayesAsset = "bayes.gob"
)

// A Model bundles a fitted TF-IDF vectorizer with the Naive Bayes classifier
// trained on its output. It is read-only and safe for concurrent use.
type Model struct {
	Name string

	vectorizer *TfidfVectorizer
	classifier *NaiveBayes
}

// NewModel pairs a fitted vectorizer and classifier.
func NewModel(name string, vec *TfidfVectorizer, nb *NaiveBayes) (*Model, error) {
	if vec == nil || vec.Space() == nil {
		return nil, fmt.Errorf("%w: vectorizer is not fitted", ErrModelState)
	}
	if nb == nil || !nb.Fitted() {
		return nil, fmt.Errorf("%w: classifier is not fitted", ErrModelState)
	}
	return &Model{Name: name, vectorizer: vec, classifier: nb}, nil
}

// Vectorizer returns the model's vectorizer.
func (m *Model) Vectorizer() *TfidfVectorizer { return m.vectorizer }

// Classifier returns the model's classifier.
func (m *Model) Classifier() *NaiveBayes { return m.classifier }

// Write saves m under path. Both assets are encoded first, then written
// to a temporary sibling directory that replaces path in one rename, so a
// failed write leaves any previous model at path untouched.
func (m *Model) Write(path string) error {
	assets := []struct {
		name string
		data encoding.BinaryMarshaler
	}{
		{SpaceAsset, m.vectorizer},
		{BayesAsset, m.classifier},
	}
	encoded := make([][]byte, len(assets))
	for i, a := range assets {
		b, err := a.data.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", a.name, err)
		}
		encoded[i] = b
	}

	path = filepath.Clean(path)
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, os.ModePerm); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	for i, a := range assets {
		if err := writeFileSynced(filepath.Join(tmp, a.name), encoded[i]); err != nil {
			return fmt.Errorf("writing %s: %w", a.name, err)
		}
	}
	return replaceDir(tmp, path)
}

func writeFileSynced(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// replaceDir moves src to dst. An existing dst is set aside first and
// restored if the move fails.
func replaceDir(src, dst string) error {
	if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
		return os.Rename(src, dst)
	} else if err != nil {
		return err
	}

	old := src + ".old"
	if err := os.Rename(dst, old); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if restoreErr := os.Rename(old, dst); restoreErr != nil {
			return fmt.Errorf("%w (restoring previous model: %v)", err, restoreErr)
		}
		return err
	}
	return os.RemoveAll(old)
}

// ModelFromDisk loads a Model from the user-provided location.
func ModelFromDisk(path string) (*Model, error) {
	m, err := loadModel(os.DirFS(path))
	if err != nil {
		return nil, err
	}
	m.Name = filepath.Base(path)
	return m, nil
}

// ModelFromFS loads the model stored in the directory called name, found
// anywhere within filesys.
func ModelFromFS(name string, filesys fs.FS) (*Model, error) {
	var modelFS fs.FS
	err := fs.WalkDir(filesys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Model located. Exit tree traversal
		if d.IsDir() && d.Name() == name {
			modelFS, err = fs.Sub(filesys, path)
			if err != nil {
				return err
			}
			return io.EOF
		}

		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: locating model %s: %w", ErrResourceLoad, name, err)
	}
	if modelFS == nil {
		return nil, fmt.Errorf("%w: model %s not found", ErrResourceLoad, name)
	}

	m, err := loadModel(modelFS)
	if err != nil {
		return nil, err
	}
	m.Name = name
	return m, nil
}

func loadModel(filesys fs.FS) (*Model, error) {
	vec := &TfidfVectorizer{}
	if err := decodeAsset(filesys, SpaceAsset, vec); err != nil {
		return nil, err
	}
	nb := &NaiveBayes{}
	if err := decodeAsset(filesys, BayesAsset, nb); err != nil {
		return nil, err
	}
	if _, features := nb.featureLogProb.Dims(); features != len(vec.Space().Terms) {
		return nil, fmt.Errorf("%w: classifier has %d features, vocabulary has %d",
			ErrResourceLoad, features, len(vec.Space().Terms))
	}
	return &Model{vectorizer: vec, classifier: nb}, nil
}

func decodeAsset(filesys fs.FS, name string, into encoding.BinaryUnmarshaler) error {
	b, err := fs.ReadFile(filesys, name)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrResourceLoad, name, err)
	}
	return into.UnmarshalBinary(b)
}

// Predict classifies texts that are already normalized.
func (m *Model) Predict(texts ...string) ([]Label, error) {
	X, err := m.vectorizer.Transform(texts)
	if err != nil {
		return nil, err
	}
	return m.classifier.Predict(X)
}

// Classify normalizes raw texts with n and classifies them.
func (m *Model) Classify(n *Normalizer, texts ...string) ([]Label, error) {
	normalized := make([]string, len(texts))
	for i, text := range texts {
		normalized[i] = n.NormalizeText(text)
	}
	return m.Predict(normalized...)
}

// ModelHolder serves the current Model to concurrent readers. A new Model
// is fully loaded before it replaces the old one.
type ModelHolder struct {
	current atomic.Pointer[Model]
}

// NewModelHolder creates a holder serving m.
func NewModelHolder(m *Model) *ModelHolder {
	h := &ModelHolder{}
	h.current.Store(m)
	return h
}

// Model returns the current model, or nil if none has been stored.
func (h *ModelHolder) Model() *Model {
	return h.current.Load()
}

// Swap replaces the current model and returns the previous one.
func (h *ModelHolder) Swap(m *Model) *Model {
	return h.current.Swap(m)
}

// Reload loads the model at path and swaps it in. On failure the current
// model is kept.
func (h *ModelHolder) Reload(path string) error {
	m, err := ModelFromDisk(path)
	if err != nil {
		return err
	}
	h.current.Store(m)
	return nil
}
