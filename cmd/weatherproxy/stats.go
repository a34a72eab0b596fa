package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"weatherproxy/internal/config"
	"weatherproxy/internal/models"
	"weatherproxy/internal/usage"
)

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		since     time.Duration
		serverURL string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the usage ledger",
		Long: `Summarize gateway usage per endpoint and outcome.

By default the configured ledger backend is read directly. The memory ledger
only exists inside the server process, so use --url to ask a running gateway.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported output format: %s", format)
			}
			if since <= 0 {
				return errors.New("--since must be positive")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var resp *models.StatsResponse
			if serverURL != "" {
				resp, err = fetchStats(ctx, http.DefaultClient, serverURL, cfg.Security.APIKey, since)
			} else {
				resp, err = readStats(ctx, cfg.Usage, since)
			}
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderStats(resp))
			return err
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Summarize events newer than this")
	cmd.Flags().StringVar(&serverURL, "url", "", "Base URL of a running gateway, e.g. http://localhost:3000")
	cmd.Flags().StringVar(&format, "output-format", "table", "Output format: table|json")
	return cmd
}

func readStats(ctx context.Context, cfg models.UsageConfig, since time.Duration) (*models.StatsResponse, error) {
	if cfg.Enabled && cfg.Type == models.UsageTypeMemory {
		return nil, errors.New("the memory usage ledger lives in the server process; use --url")
	}

	recorder, err := usage.NewRecorder(cfg)
	if err != nil {
		return nil, err
	}
	defer recorder.Close()

	from := time.Now().Add(-since)
	entries, err := recorder.Summary(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage ledger: %w", err)
	}
	return models.NewStatsResponse(from, entries), nil
}

func fetchStats(ctx context.Context, client *http.Client, baseURL, apiKey string, since time.Duration) (*models.StatsResponse, error) {
	u := strings.TrimRight(baseURL, "/") + "/api/stats?since=" + url.QueryEscape(since.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", apiKey)

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("gateway returned %d: %s", res.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("gateway returned %d", res.StatusCode)
	}

	var stats models.StatsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("invalid stats response: %w", err)
	}
	return &stats, nil
}

func renderStats(resp *models.StatsResponse) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Usage since %s", resp.Since.Format(time.RFC3339))
	t.AppendHeader(table.Row{"Endpoint", "Outcome", "Requests", "Avg latency"})

	for _, e := range resp.Entries {
		t.AppendRow(table.Row{e.Endpoint, e.Outcome, e.Count, e.AvgDuration.Round(time.Millisecond)})
	}
	if len(resp.Entries) == 0 {
		t.AppendRow(table.Row{"-", "(no requests)", 0, "-"})
	}

	t.AppendFooter(table.Row{"", "Total", resp.Total, ""})
	return t.Render()
}
