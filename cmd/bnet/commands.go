package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/bnet/pkg/bnet"
	"github.com/cognicore/bnet/pkg/bnet/config"
	"github.com/cognicore/bnet/pkg/bnet/inference"
	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
	"github.com/cognicore/bnet/pkg/bnet/query"
)

// auditTolerance is how far a CPT row may sum away from 1
const auditTolerance = 1e-9

func (c *cli) queryCmd() *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "query <literal>... [given <literal>...]",
		Short: "Compute P(query | evidence)",
		Example: `  bnet query Bt
  bnet query Jt Mt given Bt
  bnet query --explain At given Jt Mt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := query.Parse(args)
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine(cmd.Context(), c.engineOptions())
			if err != nil {
				return err
			}
			defer cleanup()

			ans, err := engine.Ask(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, query.Format(req, ans.Probability, c.precision))
			if explain {
				printExplanation(out, ans.Explanation, c.precision)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "Show the marginals behind the answer")
	return cmd
}

func (c *cli) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file>",
		Short: "Answer one query per line, concurrently (use - for stdin)",
		Long: `Reads queries one per line. Blank lines and lines starting with # are skipped.
Answers are printed in input order. The command fails if any query failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			lines, err := readQueryLines(in)
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine(cmd.Context(), c.engineOptions())
			if err != nil {
				return err
			}
			defer cleanup()

			return c.runBatch(cmd, engine, lines)
		},
	}
}

func (c *cli) runBatch(cmd *cobra.Command, engine *bnet.BNet, lines []string) error {
	// Lines that do not parse never reach the engine but keep their slot.
	parseErrs := make([]error, len(lines))
	reqs := make([]query.Request, 0, len(lines))
	slots := make([]int, 0, len(lines))
	for i, line := range lines {
		req, err := query.ParseLine(line)
		if err != nil {
			parseErrs[i] = err
			continue
		}
		reqs = append(reqs, req)
		slots = append(slots, i)
	}

	answers, err := engine.AskBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	results := make([]bnet.Answer, len(lines))
	for j, ans := range answers {
		results[slots[j]] = ans
	}

	out := cmd.OutOrStdout()
	var (
		failed   int
		firstErr error
	)
	for i, line := range lines {
		qerr := parseErrs[i]
		if qerr == nil {
			qerr = results[i].Err
		}
		if qerr != nil {
			failed++
			if firstErr == nil {
				firstErr = qerr
			}
			fmt.Fprintf(out, "P ( %s ) failed: %v\n", line, qerr)
			continue
		}
		fmt.Fprintln(out, query.Format(results[i].Request, results[i].Probability, c.precision))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed, first: %w", failed, len(lines), firstErr)
	}
	return nil
}

func readQueryLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.Join(strings.Fields(line), " "))
	}
	return lines, scanner.Err()
}

func (c *cli) replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Answer queries interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine(cmd.Context(), c.engineOptions())
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bnet: network %q, %d variables\n", engine.Name(), engine.Network().Len())
			fmt.Fprintln(out, `Type a query such as "Jt Mt given Bt" (Ctrl+D or "quit" to exit)`)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					break
				}

				req, err := query.ParseLine(line)
				if err == nil {
					var ans bnet.Answer
					ans, err = engine.Ask(cmd.Context(), req)
					if err == nil {
						fmt.Fprintln(out, query.Format(req, ans.Probability, c.precision))
						continue
					}
				}
				if !bnet.IsQueryError(err) {
					return err
				}
				fmt.Fprintln(out, describeError(err))
			}

			fmt.Fprintln(out)
			return scanner.Err()
		},
	}
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the network for missing CPT rows and rows that do not sum to 1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine(cmd.Context(), c.engineOptions())
			if err != nil {
				return err
			}
			defer cleanup()

			net := engine.Network()
			out := cmd.OutOrStdout()

			issues := net.Audit(auditTolerance)
			for _, issue := range issues {
				fmt.Fprintln(out, issue.String())
			}
			if len(issues) > 0 {
				return fmt.Errorf("%s: %d issues: %w", engine.Name(), len(issues), errFindings)
			}

			fmt.Fprintf(out, "ok: %s (%d variables, %d CPT entries)\n",
				engine.Name(), net.Len(), len(net.Definition().Entries))
			return nil
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the network structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine(cmd.Context(), c.engineOptions())
			if err != nil {
				return err
			}
			defer cleanup()

			net := engine.Network()
			out := cmd.OutOrStdout()

			if asYAML {
				data, err := config.MarshalNetwork(engine.Name(), net)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			fmt.Fprintf(out, "network %s\n", engine.Name())
			for _, v := range net.TopologicalOrder() {
				parents := net.ParentsOf(v)
				if len(parents) == 0 {
					fmt.Fprintf(out, "  %s\n", v)
					continue
				}
				fmt.Fprintf(out, "  %s <- %s\n", v, strings.Join(parents, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the full definition as YAML")
	return cmd
}

func (c *cli) saveCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Store the network in the database for later use with --stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.storedName != "" {
				return fmt.Errorf("%w: save reads --network, not --stored", internalerr.ErrInvalidConfig)
			}
			st, err := openStore(cmd.Context(), c.dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			loader := config.Loader{NetworkPath: c.networkPath}
			components, err := loader.Load()
			if err != nil {
				return err
			}
			if name == "" {
				name = components.Name
			}

			net := components.Network
			if err := st.UpsertNetwork(cmd.Context(), name, net.Definition()); err != nil {
				return err
			}
			c.logger.Info("network saved", zap.String("name", name), zap.String("source", components.Source))
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d variables)\n", name, net.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name to save under (defaults to the network's own name)")
	return cmd
}

func (c *cli) networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List networks saved in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), c.dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			names, err := st.ListNetworks(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "no saved networks")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries recorded in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), c.dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			filter := ""
			if !all {
				filter = c.currentName()
			}

			recs, err := st.RecentRecords(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range recs {
				req := r.Query
				if r.Evidence != "" {
					req += " " + query.Given + " " + r.Evidence
				}
				ts := r.CreatedAt.Local().Format("2006-01-02 15:04:05")
				if r.Failed() {
					fmt.Fprintf(out, "%s  %-10s  P ( %s ) failed: %s\n", ts, r.Network, req, r.Error)
					continue
				}
				fmt.Fprintf(out, "%s  %-10s  P ( %s ) = %.*f\n", ts, r.Network, req, c.precision, r.Probability)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show")
	cmd.Flags().BoolVar(&all, "all", false, "Include every network, not only the selected one")
	return cmd
}

// currentName is the network name queries are recorded under
func (c *cli) currentName() string {
	switch {
	case c.storedName != "":
		return c.storedName
	case c.networkPath == "":
		return config.AlarmName
	}
	nf, err := config.LoadNetworkFile(c.networkPath)
	if err != nil || nf.Name == "" {
		return c.networkPath
	}
	return nf.Name
}

func printExplanation(out io.Writer, ex inference.Explanation, precision int) {
	union := append(network.Assignment{}, ex.Query...)
	union = append(union, ex.Evidence...)

	fmt.Fprintf(out, "  P(%s) = %.*f  (%d terms, summed over %s)\n",
		union, precision, ex.Numerator, ex.NumeratorTerms, hiddenList(ex.NumeratorHidden))
	if len(ex.Evidence) == 0 {
		return
	}
	fmt.Fprintf(out, "  P(%s) = %.*f  (%d terms, summed over %s)\n",
		ex.Evidence, precision, ex.Denominator, ex.DenominatorTerms, hiddenList(ex.DenominatorHidden))
	fmt.Fprintf(out, "  ratio  = %.*f\n", precision, ex.Probability)
}

func hiddenList(vars []string) string {
	if len(vars) == 0 {
		return "nothing"
	}
	return strings.Join(vars, " ")
}
