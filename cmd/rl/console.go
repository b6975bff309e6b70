package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"ringline/internal/activity"
	"ringline/internal/domain"
)

// console is a line-based call form. Blank input keeps the shown value, "."
// clears it, ":log" prints the activity log and ":q" quits.
type console struct {
	in      *bufio.Scanner
	out     io.Writer
	tracker *activity.Tracker
}

var errQuit = fmt.Errorf("quit")

func newConsole(in io.Reader, out io.Writer, tracker *activity.Tracker) *console {
	return &console{in: bufio.NewScanner(in), out: out, tracker: tracker}
}

func (c *console) run(ctx context.Context) error {
	fmt.Fprintln(c.out, "Ringline console. Blank keeps [value], '.' clears, ':log' shows activity, ':q' quits.")
	for {
		form, err := c.fill(c.tracker.Form())
		if err == errQuit {
			return nil
		}
		if err != nil {
			return err
		}
		c.tracker.SetForm(form)
		pending, issues := c.tracker.Submit(ctx, form)
		if len(issues) > 0 {
			for _, issue := range issues {
				fmt.Fprintf(c.out, "  ! %s\n", issue.Reason)
			}
			continue
		}
		fmt.Fprintf(c.out, "Calling %s...\n", strings.TrimSpace(form.RecipientName))
		entry, err := pending.Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "[%s] %s\n", entry.Status, entry.ResponseMessage)
	}
}

func (c *console) fill(form domain.CallRequest) (domain.CallRequest, error) {
	fields := []struct {
		label string
		dst   *string
	}{
		{"Your name", &form.CallerName},
		{"Your callback number (optional)", &form.CallerNumber},
		{"Recipient name", &form.RecipientName},
		{"Recipient number", &form.RecipientNumber},
		{"Objective", &form.Objective},
		{"Notes (optional)", &form.Notes},
	}
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		fmt.Fprintf(c.out, "%s [%s]: ", f.label, *f.dst)
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return form, err
			}
			return form, errQuit
		}
		line := strings.TrimSpace(c.in.Text())
		switch line {
		case ":q":
			return form, errQuit
		case ":log":
			writeEntries(c.out, c.tracker.Entries())
			i--
		case "":
		case ".":
			*f.dst = ""
		default:
			*f.dst = line
		}
	}
	return form, nil
}

func writeEntries(out io.Writer, entries []activity.Entry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Time", "Status", "Recipient", "Number", "Message"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.CreatedAt.Format(time.Kitchen), e.Status, e.RecipientName, e.RecipientNumber, e.ResponseMessage})
	}
	tw.Render()
}
