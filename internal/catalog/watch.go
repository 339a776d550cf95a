package catalog

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates cached directory templates whenever a .json file in the
// templates directory changes. onChange, if set, receives the template id.
// Watch blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context, onChange func(id string)) error {
	dir := c.Dir()
	if dir == "" {
		return fmt.Errorf("no templates directory configured")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Printf("[catalog] Watching %s", dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			id := strings.TrimSuffix(filepath.Base(event.Name), ".json")
			c.Invalidate(id)
			log.Printf("[catalog] Template %s changed (%s)", id, event.Op)
			if onChange != nil {
				onChange(id)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[catalog] Watch error: %v", err)
		}
	}
}
