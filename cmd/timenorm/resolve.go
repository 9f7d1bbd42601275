package main

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
)

var (
	resolveReference string
	resolveSource    string
	resolvePretty    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [tagged]",
	Short: "Resolve tagged text read from the arguments or stdin",
	Args:  cobra.ArbitraryArgs,
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveReference, "reference", "", "reference instant, e.g. 2025-01-21T08:00:00Z (default now)")
	resolveCmd.Flags().StringVar(&resolveSource, "source", "", "original text; enables the ambiguity filter")
	resolveCmd.Flags().BoolVar(&resolvePretty, "pretty", false, "indent JSON output")
}

func runResolve(cmd *cobra.Command, args []string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	svc, err := newService(p, nil)
	if err != nil {
		return err
	}

	tagged := strings.Join(args, " ")
	if len(args) == 0 {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "read stdin")
		}
		tagged = string(raw)
	}
	reference := resolveReference
	if reference == "" {
		reference = resolver.Format(time.Now().UTC())
	}

	var results []resolver.Result
	if resolveSource != "" {
		results, err = svc.ResolveText(cmd.Context(), resolveSource, tagged, reference)
	} else {
		results, err = svc.Resolve(cmd.Context(), tagged, reference)
	}
	if err != nil {
		return err
	}
	if results == nil {
		results = []resolver.Result{}
	}
	return writeJSON(cmd.OutOrStdout(), results, resolvePretty)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
