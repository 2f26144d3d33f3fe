package curriculum

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed syllabi/*.yaml
var defaultSyllabi embed.FS

// Loader loads syllabus YAML files and answers read-only taxonomy lookups.
// Subjects with the same name across files are merged in file order.
type Loader struct {
	syllabi  map[string]Syllabus
	subjects []Subject
	mu       sync.RWMutex
}

// NewLoader loads every syllabus YAML under rootDir. An empty rootDir loads
// the built-in JEE syllabus.
func NewLoader(rootDir string) (*Loader, error) {
	if rootDir == "" {
		return NewDefault()
	}
	return load(os.DirFS(rootDir))
}

// NewDefault loads the built-in JEE syllabus.
func NewDefault() (*Loader, error) {
	sub, err := fs.Sub(defaultSyllabi, "syllabi")
	if err != nil {
		return nil, err
	}
	return load(sub)
}

func load(fsys fs.FS) (*Loader, error) {
	l := &Loader{
		syllabi: make(map[string]Syllabus),
	}

	if err := l.loadAll(fsys); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	l.index()

	slog.Info("curriculum loaded", "syllabi", len(l.syllabi), "subjects", len(l.subjects))
	return l, nil
}

// GetSyllabus returns a syllabus by ID.
func (l *Loader) GetSyllabus(id string) (Syllabus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.syllabi[id]
	return s, ok
}

// Subjects returns subject names in syllabus order.
func (l *Loader) Subjects() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.subjects))
	for _, s := range l.subjects {
		names = append(names, s.Name)
	}
	return names
}

// SubjectChapters returns the chapters of subject, matched case-insensitively.
func (l *Loader) SubjectChapters(subject string) ([]Chapter, bool) {
	s, ok := l.lookup(subject)
	if !ok {
		return nil, false
	}
	return cloneChapters(s.Chapters), true
}

// CanonicalSubject returns the stored spelling of subject.
func (l *Loader) CanonicalSubject(subject string) (string, bool) {
	s, ok := l.lookup(subject)
	return s.Name, ok
}

// AllTopics returns every topic as a flat triple, in syllabus order.
func (l *Loader) AllTopics() []TopicRef {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var refs []TopicRef
	for _, s := range l.subjects {
		refs = appendRefs(refs, s)
	}
	return refs
}

// SubjectTopics returns the flat triples of one subject.
func (l *Loader) SubjectTopics(subject string) []TopicRef {
	s, ok := l.lookup(subject)
	if !ok {
		return nil
	}
	return appendRefs(nil, s)
}

func (l *Loader) lookup(subject string) (Subject, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	name := strings.TrimSpace(subject)
	for _, s := range l.subjects {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Subject{}, false
}

func appendRefs(refs []TopicRef, s Subject) []TopicRef {
	for _, c := range s.Chapters {
		for _, t := range c.Topics {
			refs = append(refs, TopicRef{Subject: s.Name, Chapter: c.Name, Topic: t})
		}
	}
	return refs
}

func (l *Loader) loadAll(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".yaml", ".yml":
			return l.loadSyllabus(fsys, p)
		}
		return nil
	})
}

func (l *Loader) loadSyllabus(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}

	var s Syllabus
	if err := yaml.Unmarshal(data, &s); err != nil {
		slog.Warn("skipping invalid syllabus YAML", "path", p, "error", err)
		return nil
	}

	if s.ID == "" || len(s.Subjects) == 0 {
		return nil // Not a syllabus file
	}

	l.mu.Lock()
	l.syllabi[s.ID] = s
	l.mu.Unlock()

	return nil
}

// index flattens all syllabi into one subject list ordered by syllabus ID.
func (l *Loader) index() {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.syllabi))
	for id := range l.syllabi {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	l.subjects = nil
	for _, id := range ids {
		for _, s := range l.syllabi[id].Subjects {
			if s.Name == "" {
				continue
			}
			merged := false
			for i := range l.subjects {
				if strings.EqualFold(l.subjects[i].Name, s.Name) {
					l.subjects[i].Chapters = append(l.subjects[i].Chapters, cloneChapters(s.Chapters)...)
					merged = true
					break
				}
			}
			if !merged {
				l.subjects = append(l.subjects, Subject{Name: s.Name, Chapters: cloneChapters(s.Chapters)})
			}
		}
	}
}

func cloneChapters(chapters []Chapter) []Chapter {
	out := make([]Chapter, len(chapters))
	for i, c := range chapters {
		out[i] = Chapter{Name: c.Name, Topics: append([]string(nil), c.Topics...)}
	}
	return out
}
