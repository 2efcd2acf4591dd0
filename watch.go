package sentimen

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// LexiconWatcher keeps a Labeler in sync with lexicon files on disk. A
// reload builds a complete new Labeler before swapping it in; a reload that
// fails keeps the previous one.
type LexiconWatcher struct {
	paths   []string
	format  LexiconFormat
	log     logrus.FieldLogger
	current atomic.Pointer[Labeler]
	reloads atomic.Int64
}

// NewLexiconWatcher loads the lexicon files once. The initial load must
// succeed.
func NewLexiconWatcher(format LexiconFormat, log logrus.FieldLogger, paths ...string) (*LexiconWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no lexicon files to watch", ErrValidation)
	}
	if log == nil {
		log = discardLogger()
	}
	w := &LexiconWatcher{format: format, log: log}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.paths = append(w.paths, abs)
	}
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Labeler returns the current labeler.
func (w *LexiconWatcher) Labeler() *Labeler {
	return w.current.Load()
}

// Reloads returns the number of successful loads, the initial one included.
func (w *LexiconWatcher) Reloads() int64 {
	return w.reloads.Load()
}

// Reload rereads every lexicon file and swaps in a new Labeler.
func (w *LexiconWatcher) Reload() error {
	lex, err := LoadLexiconFiles(w.format, w.log, w.paths...)
	if err != nil {
		w.log.WithError(err).Warn("lexicon reload failed, keeping previous lexicon")
		return err
	}
	w.current.Store(NewLabeler(lex))
	w.reloads.Add(1)
	w.log.WithField("phrases", lex.Len()).Info("lexicon reloaded")
	return nil
}

// Watch reloads the lexicon whenever one of its files is written, created
// or renamed into place. It blocks until ctx is done.
func (w *LexiconWatcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Directories are watched so that editors replacing the file are seen.
	dirs := make(map[string]struct{})
	for _, p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.isWatched(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": event.Name, "op": event.Op.String()}).Debug("lexicon file changed")
			_ = w.Reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

func (w *LexiconWatcher) isWatched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, p := range w.paths {
		if p == abs {
			return true
		}
	}
	return false
}
