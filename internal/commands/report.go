package commands

import (
	"fmt"
	"io"
	"strings"

	"capi-inspector/internal/metrics"
	"capi-inspector/internal/model"
	"capi-inspector/internal/output"
	"capi-inspector/internal/policy"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

// reportFlags are the output flags shared by the analysis commands.
type reportFlags struct {
	output  string
	format  string
	strict  bool
	compare string
}

func (f *reportFlags) bind(cmd *cobra.Command) {
	formats := make([]string, 0, len(output.Formats))
	for _, ff := range output.Formats {
		formats = append(formats, string(ff))
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&f.format, "format", string(output.FormatText), "Report format: "+strings.Join(formats, ", "))
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Treat warnings as failures")
	cmd.Flags().StringVar(&f.compare, "compare", "", "Previous JSON report to compare findings against")
}

func (f *reportFlags) parse() (output.Format, error) {
	format, err := output.ParseFormat(f.format)
	if err != nil {
		return "", usageError(err)
	}
	return format, nil
}

// run is the outcome of one analysis command.
type run struct {
	command   string
	report    *model.Report
	documents int
	mode      policy.Mode
}

// finish renders the report and concludes the run.
func finish(cmd *cobra.Command, env *Env, opts *Options, rf *reportFlags, format output.Format, r run) error {
	if err := emit(cmd, env, rf, format, r); err != nil {
		return err
	}
	return conclude(cmd, env, opts, rf, r)
}

// emit writes the report to --output or stdout, followed by the comparison
// against --compare.
func emit(cmd *cobra.Command, env *Env, rf *reportFlags, format output.Format, r run) error {
	r.report.Command = r.command
	if rf.output != "" {
		if err := output.WriteReport(rf.output, format, r.report); err != nil {
			return NewExitError(1, err)
		}
		logr.FromContextOrDiscard(cmd.Context()).Info("report written", "path", rf.output, "format", string(format))
	} else if err := output.Render(env.Stdout, format, r.report); err != nil {
		return NewExitError(1, err)
	}
	return compare(env, rf, format, r.report)
}

func compare(env *Env, rf *reportFlags, format output.Format, report *model.Report) error {
	if rf.compare == "" {
		return nil
	}
	prev, err := output.ReadReport(rf.compare)
	if err != nil {
		return NewExitError(1, err)
	}
	// Machine-readable stdout stays clean.
	var w io.Writer = env.Stderr
	if format == output.FormatText && rf.output == "" {
		w = env.Stdout
	}
	if err := output.WriteComparison(w, output.Compare(prev, report)); err != nil {
		return NewExitError(1, err)
	}
	return nil
}

// conclude applies the exit policy and writes metrics.
func conclude(cmd *cobra.Command, env *Env, opts *Options, rf *reportFlags, r run) error {
	code := policy.ExitCode(r.mode, r.report, rf.strict)
	logr.FromContextOrDiscard(cmd.Context()).V(1).Info("analysis finished",
		"command", r.command, "findings", r.report.Len(), "exitCode", code)

	if opts.MetricsFile != "" {
		rec := metrics.NewRecorder()
		rec.Observe(r.command, r.report, r.documents, code, env.now())
		if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
			return NewExitError(1, err)
		}
	}
	if code != policy.ExitClean {
		return NewExitError(code, nil)
	}
	return nil
}

// subjectFor names a report after its inputs.
func subjectFor(args []string) string {
	switch len(args) {
	case 0:
		return "cluster"
	case 1:
		return args[0]
	}
	return fmt.Sprintf("%s (+%d more)", args[0], len(args)-1)
}
