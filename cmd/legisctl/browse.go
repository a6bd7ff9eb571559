package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"legisdraft/api/internal/legislation"
	"legisdraft/api/internal/workspace"
)

var errQuit = errors.New("quit")

func browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse the catalog and load documents",
		Long: `Reads commands from stdin, one per line:

  search <term>   filter titles
  type <type>     filter by legislation type ("" clears)
  open <n>        assemble the n-th listed item
  quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, fetcher, closeCache, err := upstream(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			coord := workspace.NewCoordinator(workspace.UpstreamLoader{
				Catalog:   legislation.NewCatalog(fetcher, cfg.UpstreamBaseURL, cfg.CatalogTypes, cfg.CatalogYears, cfg.Fetch.Workers),
				Assembler: legislation.NewAssembler(fetcher, cfg.Fetch.Workers),
			})
			return browse(cmd.Context(), coord, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func browse(ctx context.Context, coord *workspace.Coordinator, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	out = &lockedWriter{w: out}

	runErr := make(chan error, 1)
	go func() { runErr <- coord.Run(ctx) }()

	states, unsubscribe := coord.Subscribe()
	defer unsubscribe()
	go func() {
		var last string
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-states:
				if line := summarize(s); line != last {
					fmt.Fprintln(out, line)
					last = line
				}
			}
		}
	}()

	if err := coord.Dispatch(ctx, workspace.CatalogRequested{}); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		action, err := parseCommand(scanner.Text(), coord.State())
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		if action == nil {
			continue
		}
		if err := coord.Dispatch(ctx, action); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}

	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// parseCommand maps one input line to a workspace action. Blank lines
// yield a nil action.
func parseCommand(line string, s workspace.State) (workspace.Action, error) {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "":
		return nil, nil
	case "quit", "exit":
		return nil, errQuit
	case "search":
		return workspace.SearchChanged{Term: arg}, nil
	case "type":
		return workspace.TypeFilterChanged{Type: strings.Trim(arg, `"`)}, nil
	case "open":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(s.Filtered) {
			return nil, fmt.Errorf("open expects 1..%d", len(s.Filtered))
		}
		return workspace.ItemSelected{Href: s.Filtered[n-1].Href}, nil
	}
	return nil, fmt.Errorf("unknown command %q", verb)
}

func summarize(s workspace.State) string {
	switch {
	case s.Err != "":
		return "error: " + s.Err
	case s.CatalogLoading:
		return "loading catalog..."
	case s.DocumentLoading && s.Selected != nil:
		return "loading " + s.Selected.Title + "..."
	case s.Document != nil:
		return fmt.Sprintf("%s: %d sections, %d bytes", s.Document.Title, len(s.Document.TOC), len(s.Document.FullHTML))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d items", len(s.Filtered), len(s.Catalog))
	for i, item := range s.Filtered {
		if i == 10 {
			fmt.Fprintf(&b, "\n  ...")
			break
		}
		fmt.Fprintf(&b, "\n  %d. [%s %d] %s", i+1, item.Type, item.Year, item.Title)
	}
	return b.String()
}

// lockedWriter serialises writes from the state printer and the command
// loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
