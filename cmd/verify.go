// Package cmd implements the deployment verification CLI.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

const defaultCheckTimeout = 30 * time.Second

// CheckResult is the outcome of one verification check.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Detail  string `json:"detail,omitempty"`
	Elapsed string `json:"elapsed"`
}

// check is one verification step against a deployed instance.
type check struct {
	name string
	run  func(client *http.Client, baseURL string) (string, error)
}

// verificationChecks are run in order; each is independent of the others.
var verificationChecks = []check{
	{"health endpoint", checkHealth},
	{"readiness endpoint", checkReady},
	{"root page", checkRoot},
}

// NewVerifyCmd creates the 'verify' command, which runs post-deploy smoke
// checks against a running instance.
func NewVerifyCmd() *cobra.Command {
	var (
		baseURL    string
		outputJSON bool
		noColor    bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a deployed instance",
		Long: `Run post-deployment smoke checks against a running instance.

Checks the health and readiness endpoints and the application root page,
and reports pass/fail for each. Exits non-zero if any check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if baseURL == "" {
				return fmt.Errorf("--url is required (e.g. --url https://myapp.onrender.com)")
			}
			if _, err := url.ParseRequestURI(baseURL); err != nil {
				return fmt.Errorf("invalid --url: %w", err)
			}

			client := &http.Client{Timeout: timeout}
			results := runChecks(client, strings.TrimRight(baseURL, "/"), !outputJSON)

			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				renderResults(results)
			}

			for _, r := range results {
				if !r.Passed {
					return fmt.Errorf("%d of %d checks failed", countFailed(results), len(results))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Base URL of the deployed instance")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultCheckTimeout, "Per-check HTTP timeout")

	return cmd
}

// runChecks executes every verification check and collects the results.
func runChecks(client *http.Client, baseURL string, showProgress bool) []CheckResult {
	var s *spinner.Spinner
	if showProgress {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Running deployment checks..."
		s.Start()
	}

	results := make([]CheckResult, 0, len(verificationChecks))
	for _, c := range verificationChecks {
		start := time.Now()
		detail, err := c.run(client, baseURL)
		r := CheckResult{
			Name:    c.name,
			Passed:  err == nil,
			Detail:  detail,
			Elapsed: time.Since(start).Round(time.Millisecond).String(),
		}
		if err != nil {
			r.Detail = err.Error()
		}
		results = append(results, r)
	}

	if s != nil {
		s.Stop()
	}
	return results
}

func renderResults(results []CheckResult) {
	infoColor.Println("Deployment verification results:")
	for _, r := range results {
		if r.Passed {
			successColor.Printf("  PASS  %s", r.Name)
		} else {
			errorColor.Printf("  FAIL  %s", r.Name)
		}
		fmt.Printf("  (%s)", r.Elapsed)
		if r.Detail != "" {
			fmt.Printf("  %s", r.Detail)
		}
		fmt.Println()
	}

	if n := countFailed(results); n > 0 {
		warningColor.Printf("%d of %d checks failed\n", n, len(results))
	} else {
		successColor.Println("All checks passed")
	}
}

func countFailed(results []CheckResult) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}

// checkHealth verifies the health endpoint answers and reports its status.
func checkHealth(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return "", fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("health response is not JSON: %w", err)
	}

	detail := fmt.Sprintf("status=%s database=%s", body.Status, body.Database)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health returned %d (%s)", resp.StatusCode, detail)
	}
	return detail, nil
}

// checkReady verifies the readiness endpoint reports ready.
func checkReady(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Get(baseURL + "/ready")
	if err != nil {
		return "", fmt.Errorf("readiness request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("readiness returned %d", resp.StatusCode)
	}
	return "ready", nil
}

// checkRoot verifies the application root answers with a non-server-error
// page. A 3xx or 401/403 still proves the application process is serving.
func checkRoot(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Get(baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("root request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("root returned %d", resp.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode), nil
}
