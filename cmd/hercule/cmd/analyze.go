package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/html/charset"

	"github.com/hercule-app/hercule/internal/agent"
	"github.com/hercule-app/hercule/internal/client"
	"github.com/hercule-app/hercule/internal/core"
	"github.com/hercule-app/hercule/internal/orchestrator"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Extract and analyze the privacy policy of a page",
	Long: `analyze runs the full workflow against a page: fetch it, extract the
visible policy text, send it to the analysis service, and print the scored
result. The service must be running (see 'hercule serve').`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the raw result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	pageURL := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	extractor := agent.New(agent.WithLogger(logger.WithComponent("agent").Logger))
	transport := orchestrator.NewLocalTransport(extractor, pageLoader(pageURL))
	svc := client.New(cfg.Service.BaseURL, client.WithTimeout(cfg.Service.Timeout()))

	orch := orchestrator.New(transport, svc,
		orchestrator.WithLogger(logger.WithComponent("orchestrator").Logger),
		orchestrator.WithAnalysisTimeout(cfg.Service.Timeout()),
		orchestrator.WithRetryPolicy(&orchestrator.RetryPolicy{
			MaxRetries: cfg.Service.MaxRetries,
			BaseDelay:  time.Second,
		}),
		orchestrator.WithProgress(printProgress),
	)

	result, err := orch.Run(cmd.Context(), pageURL)
	if err != nil {
		return fmt.Errorf("%s", core.UserMessage(err))
	}
	return printResult(result)
}

// pageLoader fetches the raw page HTML for agent injection.
func pageLoader(pageURL string) orchestrator.PageLoader {
	return func(ctx context.Context) (string, string, error) {
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", "", err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", "", fmt.Errorf("page returned %d", resp.StatusCode)
		}

		reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
		if err != nil {
			reader = resp.Body
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return "", "", err
		}
		return pageURL, string(body), nil
	}
}

func printProgress(state orchestrator.State, message string) {
	switch state {
	case orchestrator.StateExtracting:
		fmt.Fprintln(os.Stderr, "Extracting policy text...")
	case orchestrator.StateInjecting:
		fmt.Fprintln(os.Stderr, "Loading page...")
	case orchestrator.StateAnalyzing:
		fmt.Fprintln(os.Stderr, "Analyzing...")
	case orchestrator.StateFailed:
		fmt.Fprintf(os.Stderr, "Failed: %s\n", message)
	}
}

func printResult(result *core.AnalysisResult) error {
	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Privacy score: %d/100\n\n", result.Score)
	fmt.Println(result.Summary)

	if len(result.RedFlags) > 0 {
		fmt.Println("\nRed flags:")
		for _, flag := range result.RedFlags {
			fmt.Printf("  - %s\n", flag)
		}
	}
	if len(result.UserActionItems) > 0 {
		fmt.Println("\nRecommended actions:")
		for _, item := range result.UserActionItems {
			fmt.Printf("  [%s] %s", item.Priority, item.Text)
			if item.URL != "" {
				fmt.Printf(" (%s)", item.URL)
			}
			fmt.Println()
		}
	}
	return nil
}
