// Package schedule implements the scheduler/driver (C7, spec.md §4.7): it
// walks the orderer's layered sequence strictly in order, decides per
// target whether to skip, build, or clean, and collects structured outcome
// messages. The core itself is single-threaded and cooperative (spec.md
// §5): actions run synchronously, one at a time, in the committed build
// order. A background errgroup only supervises CPU/memory trace sampling,
// which never participates in scheduling decisions.
package schedule

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ybld-dev/ybld"
	"github.com/ybld-dev/ybld/internal/order"
	"github.com/ybld-dev/ybld/internal/target"
	"github.com/ybld-dev/ybld/internal/trace"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
)

// Mode selects between building and cleaning.
type Mode int

const (
	Build Mode = iota
	Clean
)

// Message is one target's recorded outcome.
type Message struct {
	Target  string
	Skipped bool
	Outcome target.Outcome
}

// Report is the scheduler's full result. Failed is nil on overall success.
type Report struct {
	Messages []Message
	Failed   *Message
}

var isTerminal = isatty.IsTerminal(os.Stdout.Fd())

// ANSI color codes for status tags, ported verbatim from yamake.py's
// RED/GRN/YEL/MAG/NRM constants (spec.md's supplemented "colored status
// tags" feature). Only used when isTerminal, so piped output stays plain.
const (
	colorRed    = "\033[1;31m"
	colorGreen  = "\033[1;32m"
	colorYellow = "\033[1;33m"
	colorNormal = "\033[0m"
)

// Run walks queue in dependency-depth layers (internal/order), applying
// mode to each concrete target. dryRun suppresses invoking any action or
// clean_action; it still reports what would have run. Run stops at the
// first failure (spec.md §4.7: "no rollback; artifacts from already-run
// targets remain").
func Run(ctx context.Context, queue []*target.Target, mode Mode, dryRun bool) (*Report, error) {
	eg, ctx := errgroup.WithContext(ctx)
	traceCtx, cancelTrace := context.WithCancel(ctx)
	defer cancelTrace()
	eg.Go(func() error {
		if err := trace.CPUEvents(traceCtx, time.Second); err != nil && traceCtx.Err() == nil {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		if err := trace.MemEvents(traceCtx, time.Second); err != nil && traceCtx.Err() == nil {
			return err
		}
		return nil
	})

	report := &Report{}
	for _, layer := range order.Layers(queue) {
		for _, t := range layer {
			msg, err := runOne(ctx, t, mode, dryRun)
			report.Messages = append(report.Messages, msg)
			if isTerminal {
				statusLine(msg)
			}
			if err != nil {
				report.Failed = &msg
				cancelTrace()
				eg.Wait()
				return report, err
			}
		}
	}
	cancelTrace()
	eg.Wait()
	return report, nil
}

func statusLine(msg Message) {
	tag, color := "ok", colorGreen
	switch {
	case msg.Skipped:
		tag, color = "skip", colorYellow
	case !msg.Outcome.Success:
		tag, color = "FAIL", colorRed
	}
	if isTerminal {
		fmt.Fprintf(os.Stdout, "[%s%4s%s] %s\n", color, tag, colorNormal, msg.Target)
		return
	}
	fmt.Fprintf(os.Stdout, "[%4s] %s\n", tag, msg.Target)
}

func runOne(ctx context.Context, t *target.Target, mode Mode, dryRun bool) (Message, error) {
	if mode == Clean {
		return runClean(ctx, t, dryRun)
	}
	return runBuild(ctx, t, dryRun)
}

func runClean(ctx context.Context, t *target.Target, dryRun bool) (Message, error) {
	if t.CleanAction == nil {
		return Message{Target: t.Name, Skipped: true}, nil
	}
	if dryRun {
		return Message{Target: t.Name, Outcome: target.Outcome{Success: true, Message: "would execute"}}, nil
	}
	ev := trace.Event("clean "+t.Name, 0)
	out, err := t.CleanAction(ctx, dryRun)
	ev.Done()
	if err != nil {
		return Message{Target: t.Name, Outcome: out}, &ybld.ActionFailure{Target: t.Name, Err: err}
	}
	return Message{Target: t.Name, Outcome: out}, nil
}

func runBuild(ctx context.Context, t *target.Target, dryRun bool) (Message, error) {
	var maxDepMtime float64
	for _, d := range t.NonAbstractDepends() {
		if d.Timestamp > maxDepMtime {
			maxDepMtime = d.Timestamp
		}
	}

	needsUpdate := t.Artifact == "" || t.Timestamp == 0 || maxDepMtime > t.Timestamp
	if !needsUpdate {
		return Message{Target: t.Name, Skipped: true}, nil
	}

	if t.Action == nil {
		return Message{
			Target:  t.Name,
			Outcome: target.Outcome{Success: false, Message: "no-action"},
		}, nil
	}
	if dryRun {
		return Message{Target: t.Name, Outcome: target.Outcome{Success: true, Message: "would execute"}}, nil
	}

	ev := trace.Event("build "+t.Name, 0)
	out, err := t.Action(ctx, dryRun)
	ev.Done()
	if err != nil {
		return Message{Target: t.Name, Outcome: out}, &ybld.ActionFailure{Target: t.Name, Err: err}
	}
	if len(out.Updates) > 0 {
		t.ApplyUpdates(out.Updates)
	}
	if !out.Success {
		return Message{Target: t.Name, Outcome: out}, &ybld.ActionFailure{Target: t.Name, Err: fmt.Errorf("%s", out.Message)}
	}
	return Message{Target: t.Name, Outcome: out}, nil
}
