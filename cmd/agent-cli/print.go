package main

import (
	"fmt"
	"io"
	"strings"

	"agent-smith-api/internal/domain/entity"
	wfmodel "agent-smith-api/internal/workflow/model"
)

const rule = "============================================================"

func printInvestigation(w io.Writer, inv *entity.Investigation) {
	if inv == nil || inv.Result == nil {
		fmt.Fprintln(w, "No result.")
		return
	}
	res := inv.Result

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "FINAL REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, strings.TrimSpace(res.Report))
	fmt.Fprintln(w)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "DISCARD LOG (%d)\n", len(res.DiscardLog))
	fmt.Fprintln(w, rule)
	for i, d := range res.DiscardLog {
		fmt.Fprintf(w, "%d. %s\n   reason: %s\n", i+1, d.FilePath, d.Reason)
		if d.ContentPreview != "" {
			fmt.Fprintf(w, "   preview: %s\n", oneLine(d.ContentPreview, 160))
		}
	}
}

func printReply(w io.Writer, reply wfmodel.Reply) {
	fmt.Fprintln(w, strings.TrimSpace(reply.Content))
	if reply.Tool != "" && reply.Tool != wfmodel.ToolNone {
		fmt.Fprintf(w, "\n[tool: %s", reply.Tool)
		if reply.Query != "" {
			fmt.Fprintf(w, " | query: %s", reply.Query)
		}
		fmt.Fprintln(w, "]")
	}
}

func printWebResults(w io.Writer, results []entity.WebResult) {
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(w, "   %s\n", r.URL)
		}
		if r.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", oneLine(r.Snippet, 200))
		}
	}
}

// oneLine 折叠空白并按字符截断
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
