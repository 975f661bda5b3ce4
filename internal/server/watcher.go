package server

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"podsift/internal/transcript"
)

// watchSettleDelay debounces write events while a transcript file is
// still being copied in; ingestion starts once the file goes quiet.
const watchSettleDelay = 500 * time.Millisecond

// watch ingests .txt files dropped into dir until ctx is cancelled.
// Files that fail to parse or were already ingested are logged and
// skipped.
func (s *Server) watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s for transcripts", dir)

	pending := make(map[string]*time.Timer)
	settled := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-settled:
			delete(pending, path)
			s.ingestPath(path)

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(ev.Name), ".txt") {
				continue
			}
			path := ev.Name
			if t, ok := pending[path]; ok {
				t.Reset(watchSettleDelay)
				continue
			}
			pending[path] = time.AfterFunc(watchSettleDelay, func() {
				select {
				case settled <- path:
				case <-ctx.Done():
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (s *Server) ingestPath(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Failed to read %s: %v", path, err)
		return
	}

	name := filepath.Base(path)
	ep, err := s.ingestTranscript(transcript.TitleFromFilename(name), name, string(data))
	if err != nil {
		log.Printf("Skipping %s: %v", name, err)
		return
	}
	log.Printf("Ingested %s as episode %d", name, ep.ID)
}
