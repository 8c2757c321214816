package engine

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that the engine is reachable and that the given models
// are installed, pulling missing ones with progress written to w. Empty model
// names are skipped.
func EnsureReady(ctx context.Context, e Engine, w io.Writer, models ...string) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("inference engine is not running; start it with: ollama serve")
	}

	seen := make(map[string]bool, len(models))
	for _, name := range models {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if e.HasModel(ctx, name) {
			fmt.Fprintf(w, "model %s: ready\n", name)
			continue
		}

		fmt.Fprintf(w, "model %s: pulling...\n", name)
		err := e.PullModel(ctx, name, func(p PullProgress) {
			if p.Total > 0 {
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, float64(p.Completed)/float64(p.Total)*100)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", name, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", name)
	}
	return nil
}
