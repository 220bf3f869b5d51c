package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbready/kbready/internal/config"
	"github.com/kbready/kbready/internal/ingestion"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a document into the knowledge base",
	Long: `Upload a document into the knowledge base.

Examples:
  kbready upload --file ./pricing.pdf --section pricing
  kbready upload --url https://example.com/about --section company
  kbready upload --file ./case-study.pdf --section success --scope icp-id`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		pageURL, _ := cmd.Flags().GetString("url")
		section, _ := cmd.Flags().GetString("section")
		scope, _ := cmd.Flags().GetString("scope")
		title, _ := cmd.Flags().GetString("title")
		noWait, _ := cmd.Flags().GetBool("no-wait")

		if section == "" {
			return fmt.Errorf("--section is required")
		}
		if (file == "") == (pageURL == "") {
			return fmt.Errorf("exactly one of --file or --url is required")
		}

		req := map[string]any{
			"section":  section,
			"scope_id": scope,
			"title":    title,
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["content"] = base64.StdEncoding.EncodeToString(data)
			req["filename"] = filepath.Base(file)
		} else {
			req["url"] = pageURL
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/documents", req)
		if err != nil {
			return err
		}

		var job ingestion.Snapshot
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}

		if noWait {
			printSuccess("Started job %s", job.ID)
			return nil
		}
		return waitForJob(cmd.Context(), client, job.ID)
	},
}

// waitForJob polls until the job reaches a terminal stage, printing
// each stage transition.
func waitForJob(ctx context.Context, client *apiClient, jobID string) error {
	lastStage := ingestion.Stage("")
	for {
		resp, err := client.get(ctx, "/jobs/"+jobID)
		if err != nil {
			return err
		}
		var job ingestion.Snapshot
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}

		if job.Stage != lastStage {
			lastStage = job.Stage
			if !job.Terminal() {
				printStep("%s (%d%%)", job.Stage, job.Progress)
			}
		}

		if job.Stage == ingestion.StageDone {
			printSuccess("Document %s ingested (tags: %s)", job.DocumentID, strings.Join(job.Tags, ", "))
			return nil
		}
		if job.Stage == ingestion.StageError {
			printError("Ingestion failed at %d%%: %s", job.Progress, job.Error)
			if job.DocumentID != "" {
				printWarning("Document %s was uploaded but not processed", job.DocumentID)
			}
			return fmt.Errorf("job failed: %s", job.Reason)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
}

func init() {
	uploadCmd.Flags().String("file", "", "file path to upload")
	uploadCmd.Flags().String("url", "", "URL to fetch and ingest")
	uploadCmd.Flags().String("section", "", "knowledge section (e.g. pricing, competition)")
	uploadCmd.Flags().String("scope", "", "optional ICP profile id to scope the document to")
	uploadCmd.Flags().String("title", "", "title for the document")
	uploadCmd.Flags().Bool("no-wait", false, "return immediately without waiting for the job")
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage knowledge base documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		section, _ := cmd.Flags().GetString("section")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/documents?limit=%d", limit)
		if section != "" {
			path += "&section=" + url.QueryEscape(section)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var docs []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Section   string `json:"section"`
			Committed bool   `json:"committed"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return nil
		}

		for _, d := range docs {
			state := "committed"
			if !d.Committed {
				state = "unprocessed"
			}
			title := d.Title
			if len(title) > 60 {
				title = title[:60] + "..."
			}
			fmt.Printf("%s  %-14s  %-11s  %s\n",
				colorize(colorCyan, d.ID[:8]),
				d.Section,
				state,
				title,
			)
		}
		return nil
	},
}

var docsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}

		var doc any
		if err := decodeJSON(resp, &doc); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted document %s", args[0])
		return nil
	},
}

func init() {
	docsListCmd.Flags().String("section", "", "filter by section")
	docsListCmd.Flags().Int("limit", 50, "maximum number of documents to list")
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}

// --- icp ---

var icpCmd = &cobra.Command{
	Use:   "icp",
	Short: "Manage ideal customer profiles",
}

var icpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ICP profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/icps")
		if err != nil {
			return err
		}

		var profiles []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &profiles); err != nil {
			return err
		}

		if len(profiles) == 0 {
			fmt.Println("No ICP profiles found.")
			return nil
		}

		for _, p := range profiles {
			fmt.Printf("%s  %s\n", colorize(colorCyan, p.ID[:8]), p.Name)
		}
		return nil
	},
}

var icpAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an ICP profile",
	Long: `Create an ICP profile.

Examples:
  kbready icp add "Mid-market SaaS" --profile '{"industry":"saas"}'
  kbready icp add "Enterprise retail" --file ./icp.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileStr, _ := cmd.Flags().GetString("profile")
		file, _ := cmd.Flags().GetString("file")

		req := map[string]any{"name": args[0]}
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(data, &fields); err != nil {
				return fmt.Errorf("invalid JSON in %s: %w", file, err)
			}
			for k, v := range fields {
				req[k] = v
			}
		case profileStr != "":
			if !json.Valid([]byte(profileStr)) {
				return fmt.Errorf("--profile must be valid JSON")
			}
			req["profile"] = json.RawMessage(profileStr)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/icps", req)
		if err != nil {
			return err
		}

		var result struct {
			ID string `json:"id"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Created ICP %s", result.ID)
		return nil
	},
}

var icpShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single ICP profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/icps/"+args[0])
		if err != nil {
			return err
		}

		var profile any
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

var icpDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an ICP profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/icps/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted ICP %s", args[0])
		return nil
	},
}

func init() {
	icpAddCmd.Flags().String("profile", "", "profile attributes as a JSON object")
	icpAddCmd.Flags().String("file", "", "JSON file with profile, pain_points, and messaging fields")
	icpCmd.AddCommand(icpListCmd)
	icpCmd.AddCommand(icpAddCmd)
	icpCmd.AddCommand(icpShowCmd)
	icpCmd.AddCommand(icpDeleteCmd)
}

// --- score ---

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show the knowledge base readiness score",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/score")
		if err != nil {
			return err
		}

		var report struct {
			OverallScore   int     `json:"overall_score"`
			Bonus          float64 `json:"bonus"`
			CategoryScores []struct {
				Group    string  `json:"group"`
				Earned   float64 `json:"earned"`
				Weight   float64 `json:"weight"`
				Sections []struct {
					Section string `json:"section"`
					Label   string `json:"label"`
					Count   int    `json:"count"`
					Score   int    `json:"score"`
				} `json:"sections"`
			} `json:"category_scores"`
			Recommendations []struct {
				Label      string  `json:"label"`
				DocsNeeded int     `json:"docs_needed"`
				Gain       float64 `json:"gain"`
			} `json:"recommendations"`
		}
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("\n%s %s\n\n",
			colorize(colorBold, "Readiness score:"),
			colorize(scoreColor(report.OverallScore), fmt.Sprintf("%d/100", report.OverallScore)))

		for _, cat := range report.CategoryScores {
			fmt.Printf("%s (%.1f/%.0f)\n", colorize(colorBold, cat.Group), cat.Earned, cat.Weight)
			for _, s := range cat.Sections {
				marker := colorize(colorGreen, "●")
				if s.Score == 0 {
					marker = colorize(colorRed, "○")
				} else if s.Score < 100 {
					marker = colorize(colorYellow, "◐")
				}
				fmt.Printf("  %s %-18s %3d%%  (%d docs)\n", marker, s.Label, s.Score, s.Count)
			}
		}

		if len(report.Recommendations) > 0 {
			fmt.Printf("\n%s\n", colorize(colorBold, "Next steps:"))
			limit := 5
			if len(report.Recommendations) < limit {
				limit = len(report.Recommendations)
			}
			for _, rec := range report.Recommendations[:limit] {
				fmt.Printf("  + Add %d doc(s) to %s (+%.1f points)\n", rec.DocsNeeded, rec.Label, rec.Gain)
			}
		}
		fmt.Println()
		return nil
	},
}

func scoreColor(score int) string {
	switch {
	case score >= 80:
		return colorGreen
	case score >= 50:
		return colorYellow
	default:
		return colorRed
	}
}

func init() {
	scoreCmd.Flags().Bool("json", false, "output the raw report as JSON")
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/search?q=%s&top_k=%d", url.QueryEscape(query), limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var results []struct {
			ID       string  `json:"id"`
			SourceID string  `json:"source_id"`
			Section  string  `json:"section"`
			Text     string  `json:"text"`
			Score    float32 `json:"score"`
			Tags     string  `json:"tags"`
		}
		if err := decodeJSON(resp, &results); err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for i, r := range results {
			fmt.Printf("\n%s [%s, score: %.3f]\n",
				colorize(colorBold, fmt.Sprintf("Result %d", i+1)), r.Section, r.Score)
			if r.Tags != "" && r.Tags != "[]" {
				fmt.Printf("  Tags: %s\n", r.Tags)
			}
			text := r.Text
			if len(text) > 500 {
				text = text[:500] + "..."
			}
			fmt.Printf("  %s\n", text)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
