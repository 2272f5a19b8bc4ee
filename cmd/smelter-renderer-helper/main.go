// Command smelter-renderer-helper is the opaque subprocess the embedded
// web renderer runs as (§6): spawned by cmd/smelter, fed newline-delimited
// control messages on stdin, reporting readiness on stdout. The actual
// CEF/web-rendering work is out of scope (§1); this process only owns the
// lifecycle contract cmd/smelter depends on: start, accept commands, exit
// 0 on a clean "shutdown" command, closed stdin or an interrupt. Any other
// non-empty command is answered with "ack"; no command makes it exit 1.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fmt.Fprintln(os.Stdout, "ready")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("renderer helper interrupted")
			return
		case line, ok := <-lines:
			if !ok {
				log.Info("renderer helper stdin closed, shutting down")
				return
			}
			cmd := strings.TrimSpace(line)
			switch cmd {
			case "":
				continue
			case "shutdown":
				log.Info("renderer helper received shutdown command")
				return
			default:
				// Frame/navigate/resize commands are the web-renderer GPU
				// backend's concern (out of scope here); acknowledge so
				// cmd/smelter's pipe protocol doesn't stall waiting on a
				// reply this stub will never produce meaningfully.
				fmt.Fprintln(os.Stdout, "ack")
			}
		}
	}
}
