package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ai4care/ai4care/internal/interactionlog"
	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/internal/triage"
)

func printFieldErrors(w io.Writer, ve *triage.ValidationError) {
	for _, f := range ve.Fields {
		fmt.Fprintf(w, "  %s: %s\n", f.Field, f.Message)
	}
}

func printResult(w io.Writer, result triage.TriageResult, card triage.GuidanceCard) {
	fmt.Fprintf(w, "\n%s [%s]\n", card.Title, strings.ToUpper(string(result.UrgencyLevel)))
	fmt.Fprintln(w, card.Description)
	fmt.Fprintf(w, "\nReasoning:\n%s\n", result.Reasoning)
	printResources(w, card.Resources)
}

func printCard(w io.Writer, card triage.GuidanceCard) {
	fmt.Fprintf(w, "%s [%s]\n", card.Title, strings.ToUpper(string(card.Level)))
	fmt.Fprintln(w, card.Description)
	printResources(w, card.Resources)
}

func printResources(w io.Writer, resources []triage.Resource) {
	fmt.Fprintln(w, "\nRecommended next steps:")
	for _, r := range resources {
		fmt.Fprintf(w, "  - %s: %s", r.Title, r.Description)
		if r.Target != "" {
			fmt.Fprintf(w, " (%s)", r.Target)
		}
		fmt.Fprintln(w)
	}
}

func printExplanation(w io.Writer, text string) {
	fmt.Fprintf(w, "\nDetailed explanation:\n%s\n", text)
}

func printFacilities(w io.Writer, found []places.Facility) {
	if len(found) == 0 {
		fmt.Fprintln(w, "\nNo emergency rooms found nearby.")
		return
	}

	fmt.Fprintln(w, "\nNearest emergency rooms:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, f := range found {
		distance := f.Distance
		if f.DistanceSource == places.DistanceSourceEstimate {
			distance += " (straight line)"
		}
		fmt.Fprintf(tw, "  %d.\t%s\t%s\t%s\n", i+1, f.Name, distance, f.Address)
	}
	tw.Flush()
}

func printEntries(w io.Writer, entries []interactionlog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No assessments recorded yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tURGENCY\tSYMPTOMS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.UrgencyLevel,
			firstLine(e.SymptomDescription, 60))
	}
	tw.Flush()
}

// firstLine returns the first line of s without its "Symptom Description: "
// label, cut to n runes.
func firstLine(s string, n int) string {
	s, _, _ = strings.Cut(s, "\n")
	s = strings.TrimPrefix(s, "Symptom Description: ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
