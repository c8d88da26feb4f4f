// Package dataset reads the exported support corpus from a directory of JSON or
// JSONL files.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store"
)

// File base names, without extension. Each may be a .json array or .jsonl lines.
const (
	TicketsFile        = "tickets"
	ConversationsFile  = "conversations"
	ArticlesFile       = "knowledge_articles"
	ScriptsFile        = "scripts_master"
	QuestionsFile      = "questions"
	LineageFile        = "kb_lineage"
	LearningEventsFile = "learning_events"
)

// Dir loads a corpus from a directory. Missing files yield empty collections;
// records without an identifier and malformed lines are skipped with a warning.
type Dir struct {
	Path   string
	Logger *logrus.Logger
}

// Load implements store.Source.
func (d *Dir) Load(ctx context.Context) (*store.Corpus, error) {
	info, err := os.Stat(d.Path)
	if err != nil {
		return nil, fmt.Errorf("data dir %s: %w", d.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s: not a directory", d.Path)
	}

	var c store.Corpus
	steps := []func() error{
		func() (err error) { c.Tickets, err = load[ticketRecord](d, TicketsFile, ticketRecord.toModel); return },
		func() (err error) {
			c.Conversations, err = load[conversationRecord](d, ConversationsFile, conversationRecord.toModel)
			return
		},
		func() (err error) { c.Articles, err = load[articleRecord](d, ArticlesFile, articleRecord.toModel); return },
		func() (err error) { c.Lineage, err = load[lineageRecord](d, LineageFile, lineageRecord.toModel); return },
		func() (err error) {
			c.LearningEvents, err = load[learningEventRecord](d, LearningEventsFile, learningEventRecord.toModel)
			return
		},
		func() (err error) { c.Scripts, err = load[scriptRecord](d, ScriptsFile, scriptRecord.toModel); return },
		func() (err error) { c.Questions, err = load[questionRecord](d, QuestionsFile, questionRecord.toModel); return },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

type record interface {
	id() string
}

// load reads base.json or base.jsonl and converts every record with an id.
func load[R record, M any](d *Dir, base string, convert func(R) M) ([]M, error) {
	raws, path, err := d.readRaw(base)
	if err != nil {
		return nil, err
	}

	out := make([]M, 0, len(raws))
	skipped := 0
	for i, raw := range raws {
		var r R
		if err := json.Unmarshal(raw, &r); err != nil {
			d.warn(path, i+1, err)
			skipped++
			continue
		}
		if r.id() == "" {
			d.warn(path, i+1, internalerr.ErrInvalidRecord)
			skipped++
			continue
		}
		out = append(out, convert(r))
	}
	if skipped > 0 && d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{"file": path, "skipped": skipped, "loaded": len(out)}).Warn("records skipped")
	}
	return out, nil
}

// readRaw returns one raw message per record, preferring the .json array over .jsonl.
func (d *Dir) readRaw(base string) ([]json.RawMessage, string, error) {
	path := filepath.Join(d.Path, base+".json")
	data, err := os.ReadFile(path)
	if err == nil {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, path, fmt.Errorf("parse %s: %w", path, err)
		}
		return raws, path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, path, fmt.Errorf("read file %s: %w", path, err)
	}

	path = filepath.Join(d.Path, base+".jsonl")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, path, nil
	}
	if err != nil {
		return nil, path, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	var raws []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if !json.Valid(b) {
			d.warn(path, line, errors.New("malformed JSON"))
			continue
		}
		raws = append(raws, json.RawMessage(append([]byte(nil), b...)))
	}
	if err := scanner.Err(); err != nil {
		return nil, path, fmt.Errorf("scan %s: %w", path, err)
	}
	return raws, path, nil
}

func (d *Dir) warn(path string, n int, err error) {
	if d.Logger == nil {
		return
	}
	d.Logger.WithFields(logrus.Fields{"file": path, "record": n}).WithError(err).Debug("skipping record")
}
