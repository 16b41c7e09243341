// Command kernelctl is a minimal harness over pkg/kernel: load a rules
// file or an inline eval string, resolve it once, fully, or
// asynchronously, and print the resulting products.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kballard/go-shellquote"
	"github.com/mattn/go-isatty"

	"crtkernel/internal/value"
	"crtkernel/internal/workpool"
	"crtkernel/pkg/kernel"
)

// errNoInput means neither -f, -e, nor piped stdin supplied rules: the
// caller is at an interactive terminal with nothing to read.
var errNoInput = fmt.Errorf("no rules source given (use -f, -e, or pipe rules on stdin)")

func main() {
	var (
		rulesFile = flag.String("f", "", "Load rules from file")
		evalStr   = flag.String("e", "", "Shell-quoted string of rule sources to insert, e.g. -e \"a=1 b='hi'\"")
		mode      = flag.String("mode", "full", "Resolution mode: once, full, async")
		workers   = flag.Int("workers", 4, "Worker pool size, used by -mode=async")
		save      = flag.String("save", "", "Save resulting rules to path after resolving")
		verbose   = flag.Bool("v", false, "Log worker pool lifecycle events at debug level")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	evalPieces, stdinSrc, err := planInput(*rulesFile, *evalStr)
	if err == errNoInput {
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernelctl: %v\n", err)
		os.Exit(1)
	}

	opts := []kernel.Option{kernel.WithWorkers(*workers)}
	if *rulesFile != "" {
		opts = append(opts, kernel.WithRulesFile(*rulesFile))
	}

	listener := &diagnosticListener{start: make(map[string]time.Time)}
	opts = append(opts, kernel.WithListener(listener))

	k, err := kernel.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernelctl: %v\n", err)
		os.Exit(1)
	}
	defer k.Close()

	if stdinSrc != "" {
		if err := k.InsertAll(stdinSrc); err != nil {
			fmt.Fprintf(os.Stderr, "kernelctl: %v\n", err)
			os.Exit(1)
		}
	}
	for _, piece := range evalPieces {
		if err := k.Insert(piece); err != nil {
			fmt.Fprintf(os.Stderr, "kernelctl: inserting %q: %v\n", piece, err)
			os.Exit(1)
		}
	}

	switch *mode {
	case "once":
		printProducts(k.ResolveOnce())
	case "full":
		printProducts(k.ResolveSync())
	case "async":
		runAsync(k)
		printProducts(k.Products())
	default:
		fmt.Fprintf(os.Stderr, "kernelctl: unknown -mode %q (want once, full, or async)\n", *mode)
		os.Exit(1)
	}

	stats := k.PoolStats()
	fmt.Fprintf(os.Stderr, "pool: %s completed, %s canceled, %s failed\n",
		humanize.Comma(int64(stats.Completed)), humanize.Comma(int64(stats.Canceled)), humanize.Comma(int64(stats.Failed)))

	if *save != "" {
		if err := k.SaveRules(*save); err != nil {
			fmt.Fprintf(os.Stderr, "kernelctl: saving rules: %v\n", err)
			os.Exit(1)
		}
	}
}

// planInput decides what to insert on top of whatever -f already loaded
// as the Kernel's initial rules: -e is split with shellquote into
// individual rule sources, each inserted independently, so an -e with
// several `key=value` words behaves the same as inserting each one by
// hand would. With neither -f nor -e given, piped stdin is read whole
// and inserted via InsertAll, following the same isatty test the
// teacher's CLI uses to distinguish a pipe from an interactive
// terminal.
func planInput(rulesFile, evalStr string) (evalPieces []string, stdinSrc string, err error) {
	switch {
	case evalStr != "":
		pieces, err := shellquote.Split(evalStr)
		if err != nil {
			return nil, "", fmt.Errorf("splitting -e: %w", err)
		}
		return pieces, "", nil
	case rulesFile != "":
		return nil, "", nil
	case isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()):
		return nil, "", errNoInput
	default:
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return nil, string(input), nil
	}
}

func runAsync(k *kernel.Kernel) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		before := k.Products().Len()
		k.ResolveAsync()
		time.Sleep(20 * time.Millisecond)
		stats := k.PoolStats()
		if k.Products().Len() == before && stats.Pending == 0 && stats.Running == 0 {
			break
		}
	}
}

func printProducts(products interface {
	Keys() []string
	Get(string) (value.Expression, bool)
}) {
	for _, key := range products.Keys() {
		v, _ := products.Get(key)
		fmt.Println(key + "=" + value.UnparseUnkeyed(v))
	}
}

type diagnosticListener struct {
	start map[string]time.Time
}

func (d *diagnosticListener) TaskStarting(worker int, name string) {
	d.start[name] = time.Now()
	slog.Debug("resolving", "worker", worker, "key", name)
}

func (d *diagnosticListener) TaskCanceled(worker int, name string) {
	slog.Debug("canceled", "worker", worker, "key", name)
	delete(d.start, name)
}

func (d *diagnosticListener) TaskFinished(worker int, name string, result value.Expression) {
	if age, ok := d.start[name]; ok {
		slog.Debug("resolved", "worker", worker, "key", name, "since", humanize.Time(age))
	}
	delete(d.start, name)
}

var _ workpool.Listener = (*diagnosticListener)(nil)
