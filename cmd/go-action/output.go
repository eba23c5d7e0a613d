package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bassista/go_action/internal/repository"
)

// printJSON writes v as JSON indented by two spaces.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printActivations(w io.Writer, activations []repository.Activation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVATION\tSTART\tDURATION\tSTATUS\tKIND\tACTION")
	for _, a := range activations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ActivationID,
			a.Start.Local().Format(time.DateTime),
			(time.Duration(a.DurationMs) * time.Millisecond).String(),
			a.Status,
			a.Kind,
			a.Action,
		)
	}
	return tw.Flush()
}
