package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"complexity-analyzer/api/internal/analysis"
	"complexity-analyzer/api/internal/config"
	"complexity-analyzer/api/internal/llm"
	"complexity-analyzer/api/internal/llm/gemini"
	"complexity-analyzer/api/internal/logging"
)

const sampleCode = `
def bubble_sort(arr):
    n = len(arr)
    for i in range(n):
        for j in range(0, n-i-1):
            if arr[j] > arr[j+1]:
                arr[j], arr[j+1] = arr[j+1], arr[j]
    return arr
`

// engineFactory builds the generation client from loaded config; swapped out in tests.
type engineFactory func(ctx context.Context, cfg *config.Config) (llm.Engine, func(), error)

func geminiFactory(ctx context.Context, cfg *config.Config) (llm.Engine, func(), error) {
	eng, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	return eng, func() { _ = eng.Close() }, nil
}

type options struct {
	envFile string
	model   string
	strict  bool
	asJSON  bool
	verbose bool
}

func newRootCmd(newEngine engineFactory) *cobra.Command {
	var opt options
	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Ask the model for time and space complexity of a code snippet",
		Long: "Reads code from a file, from stdin (\"-\") or uses a built-in bubble sort sample,\n" +
			"sends it to Gemini and prints the normalized analysis.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runAnalyze(cmd, newEngine, opt, code)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opt.envFile, "env", ".env", "dotenv file with GEMINI_API_KEY")
	f.StringVar(&opt.model, "model", "", "override GEMINI_MODEL")
	f.BoolVar(&opt.strict, "strict", false, "require all three keys in the model answer")
	f.BoolVar(&opt.asJSON, "json", false, "print the result as JSON")
	f.BoolVarP(&opt.verbose, "verbose", "v", false, "debug logging to stderr")
	return cmd
}

func readCode(stdin io.Reader, args []string) (string, error) {
	switch {
	case len(args) == 0:
		return sampleCode, nil
	case args[0] == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(b), nil
	}
}

func runAnalyze(cmd *cobra.Command, newEngine engineFactory, opt options, code string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opt.envFile)
	if err != nil {
		return err
	}
	if opt.model != "" {
		cfg.GeminiModel = opt.model
	}

	level := "warn"
	if opt.verbose {
		level = "debug"
	}
	log, err := logging.New(level, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eng, closeFn, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	out := cmd.OutOrStdout()
	an := analysis.New(eng, log, opt.strict || cfg.StrictSchema)
	log.Debug("requesting analysis", zap.String("model", eng.Model()))

	res, err := an.Analyze(ctx, code)
	if err != nil {
		var fe *analysis.ResponseFormatError
		if errors.As(err, &fe) {
			fmt.Fprintf(out, "--- API Call Failed ---\nJSON Decode Error: %v\nRaw response from API was: '%s'\n", fe.Err, fe.Raw)
		}
		return err
	}

	if opt.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "Time Complexity: %s\nSpace Complexity: %s\nExplanation: %s\n",
		res.TimeComplexity, res.SpaceComplexity, strings.TrimSpace(res.Explanation))
	return nil
}

func main() {
	if err := newRootCmd(geminiFactory).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
