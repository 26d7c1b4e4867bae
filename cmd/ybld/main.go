// Command ybld is the thin CLI wrapper (spec.md §6.4) around the resolver
// core: it loads a declaration file, loads configuration, probes
// timestamps, resolves a request, orders the result, and drives the
// scheduler, following the flag-then-funcmain()-error structure of
// distri's cmd/distri/distri.go.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ybld-dev/ybld"
	"github.com/ybld-dev/ybld/internal/buildgraph"
	"github.com/ybld-dev/ybld/internal/config"
	"github.com/ybld-dev/ybld/internal/declfile"
	"github.com/ybld-dev/ybld/internal/env"
	"github.com/ybld-dev/ybld/internal/probe"
	"github.com/ybld-dev/ybld/internal/resolve"
	"github.com/ybld-dev/ybld/internal/schedule"
	internaltrace "github.com/ybld-dev/ybld/internal/trace"
	"github.com/google/renameio"
	"golang.org/x/sys/unix"
)

var (
	buildFile   = flag.String("build", "", "declaration file path (alias -b)")
	buildFileB  = flag.String("b", "", "declaration file path")
	configFile  = flag.String("config", "", "configuration file path (alias -c)")
	configFileC = flag.String("c", "", "configuration file path")
	clean       = flag.Bool("clean", false, "invoke clean actions instead of build actions")
	dryRun      = flag.Bool("dry-run", false, "resolve and order but do not invoke actions (alias -n)")
	dryRunN     = flag.Bool("n", false, "resolve and order but do not invoke actions")
	list        = flag.Bool("list", false, "enumerate registered targets (alias -l)")
	listL       = flag.Bool("l", false, "enumerate registered targets")
	jsonOutput  = flag.Bool("json-output", false, "serialize the declaration graph back out (alias -j)")
	jsonOutputJ = flag.Bool("j", false, "serialize the declaration graph back out")
	debug       = flag.Bool("debug", false, "verbose resolver tracing")
)

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// bumpRlimitNOFILE raises the process's open-file limit to the kernel
// maximum, adapted from distri's cmd/distri/distri.go: the scheduler opens
// one artifact/log file at a time today, but large declaration graphs with
// concurrent future schedulers would exhaust a low default limit quickly.
func bumpRlimitNOFILE() error {
	var fileMax, nrOpen uint64
	{
		b, err := ioutil.ReadFile("/proc/sys/fs/file-max")
		if err != nil {
			return err
		}
		fileMax, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	{
		b, err := ioutil.ReadFile("/proc/sys/fs/nr_open")
		if err != nil {
			return err
		}
		nrOpen, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	max := fileMax
	if nrOpen < max {
		max = nrOpen
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Max: max, Cur: max})
}

func funcmain() error {
	flag.Parse()

	if err := bumpRlimitNOFILE(); err != nil {
		log.Printf("Warning: bumping RLIMIT_NOFILE failed: %v", err)
	}

	if *debug {
		f, err := os.Create("ybld.trace")
		if err != nil {
			return err
		}
		internaltrace.Sink(f)
	}

	path := firstNonEmpty(*buildFile, *buildFileB)
	if path == "" {
		found, ok := env.BuildFile()
		if !ok {
			return fmt.Errorf("no declaration file given (-build) and none found (set YBLD_BUILD or create ybld.yaml)")
		}
		path = found
	}

	b := buildgraph.NewBuilder()
	if err := declfile.Load(path, b); err != nil {
		return err
	}

	cfgPath := firstNonEmpty(firstNonEmpty(*configFile, *configFileC), env.ConfigFile())
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if *jsonOutput || *jsonOutputJ {
		out, err := declfile.MarshalJSON(b)
		if err != nil {
			return err
		}
		return renameio.WriteFile("ybld.json", out, 0644)
	}

	if *list || *listL {
		printList(b)
		return nil
	}

	g, err := buildgraph.Finalize(b, nil)
	if err != nil {
		return err
	}

	probe.Probe(g.Targets(), cfg)

	result, err := resolve.Resolve(g, flag.Args(), nil)
	if err != nil {
		if *debug {
			return fmt.Errorf("resolve: %+v", err)
		}
		return fmt.Errorf("resolve: %v", err)
	}

	mode := schedule.Build
	if *clean {
		mode = schedule.Clean
	}

	ctx, cancel := ybld.InterruptibleContext()
	defer cancel()
	defer ybld.RunAtExit()

	report, err := schedule.Run(ctx, result.Queue, mode, *dryRun || *dryRunN)
	for _, msg := range report.Messages {
		if msg.Skipped {
			continue
		}
		if msg.Outcome.Message != "" {
			fmt.Fprintf(os.Stdout, "%s: %s\n", msg.Target, msg.Outcome.Message)
		}
	}
	if err != nil {
		return fmt.Errorf("build: %v", err)
	}
	return nil
}

// printList follows yamake/cli.py's list_targets annotation format
// verbatim: a header, then one "name (tag, tag)" line per target in name
// order (spec.md's supplemented "--list annotations" feature; §6.4 names
// the flag but not its output shape).
func printList(b *buildgraph.Builder) {
	fmt.Println("Available targets:")
	fmt.Println("=================")
	names := b.Names()
	sort.Strings(names)
	for _, name := range names {
		t, _ := b.Get(name)
		var tags []string
		if t.IsDefault {
			tags = append(tags, "default")
		}
		if t.Essential {
			tags = append(tags, "essential")
		}
		if t.IsAbstract() {
			tags = append(tags, "abstract")
		}
		if len(tags) == 0 {
			fmt.Println(name)
			continue
		}
		fmt.Printf("%s (%s)\n", name, strings.Join(tags, ", "))
	}
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
