package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/skinshop/internal/api"
	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/config"
	"github.com/kalambet/skinshop/internal/ingest"
	"github.com/kalambet/skinshop/internal/pipeline"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Ask the running server a shopping question",
	Long: `Ask the running server a shopping question.

Examples:
  skinshop search "recommend a moisturizer for dry skin"
  skinshop search --session 3f2c... "what about a serum?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/search", pipeline.Request{
			Query:     strings.Join(args, " "),
			SessionID: sessionID,
		})
		if err != nil {
			return err
		}

		var result pipeline.Response
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if asJSON {
			return writeIndented(cmd.OutOrStdout(), result)
		}
		renderSearch(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("session", "", "session ID to continue")
	searchCmd.Flags().Bool("json", false, "print the raw JSON response")
}

func renderSearch(w io.Writer, r pipeline.Response) {
	fmt.Fprintf(w, "%s %s\n\n", colorize(bold, "Type:"), r.QueryType)
	fmt.Fprintln(w, r.Answer)

	if len(r.Products) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(bold, "Products:"))
		for i, p := range r.Products {
			fmt.Fprintf(w, "  %d. %s\n", i+1, productLine(p))
		}
	}
	if r.FollowUp != nil {
		fmt.Fprintf(w, "\n%s %s\n", colorize(cyan, "?"), *r.FollowUp)
	}
	fmt.Fprintf(w, "\n%s %s\n", colorize(bold, "Session:"), r.SessionID)
}

func productLine(p catalog.Product) string {
	line := fmt.Sprintf("%s (%s)", p.Name, p.Category)
	if p.Price != nil {
		line += fmt.Sprintf(" $%.2f", *p.Price)
	}
	return line + "  " + colorize(cyan, "["+p.ID+"]")
}

// --- products ---

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/products"
		if limit > 0 {
			path += fmt.Sprintf("?limit=%d", limit)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var products []catalog.Product
		if err := decodeJSON(resp, &products); err != nil {
			return err
		}

		if len(products) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No products found. Run 'skinshop index --catalog <file>' first.")
			return nil
		}
		for _, p := range products {
			fmt.Fprintln(cmd.OutOrStdout(), productLine(p))
		}
		return nil
	},
}

func init() {
	productsCmd.Flags().Int("limit", 0, "maximum number of products to list (0 = all)")
}

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear conversation sessions",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's turn count and learned preferences",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/session/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var info api.SessionInfo
		if err := decodeJSON(resp, &info); err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), info)
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <id>",
	Short: "Forget a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/session/clear", map[string]string{"session_id": args[0]})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("%s", result["message"])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Replace the catalog and rebuild the retrieval index",
	Long: `Replace the catalog and rebuild the retrieval index.

The catalog may be CSV, JSON or YAML. The optional info document (text,
markdown or PDF) is split into paragraphs and indexed alongside the products.

Examples:
  skinshop index --catalog ./skincare_catalog.csv
  skinshop index --catalog ./catalog.yaml --info ./skincare_guide.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogPath, _ := cmd.Flags().GetString("catalog")
		infoPath, _ := cmd.Flags().GetString("info")

		if catalogPath == "" || infoPath == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if catalogPath == "" {
				catalogPath = cfg.Catalog.Path
			}
			if infoPath == "" {
				infoPath = cfg.Catalog.InfoPath
			}
		}
		if catalogPath == "" {
			return fmt.Errorf("--catalog is required (or set catalog.path)")
		}

		req, err := buildIndexRequest(catalogPath, infoPath)
		if err != nil {
			return err
		}
		printStep("Loaded %d products from %s", len(req.Products), catalogPath)

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/admin/index", req)
		if err != nil {
			return err
		}

		var result api.IndexResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Queued %d documents for indexing", result.Documents)
		return nil
	},
}

func init() {
	indexCmd.Flags().String("catalog", "", "catalog file (.csv, .json, .yaml)")
	indexCmd.Flags().String("info", "", "supplementary info document (.txt, .md, .pdf)")
}

func buildIndexRequest(catalogPath, infoPath string) (api.IndexRequest, error) {
	products, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return api.IndexRequest{}, fmt.Errorf("loading catalog: %w", err)
	}
	if len(products) == 0 {
		return api.IndexRequest{}, fmt.Errorf("catalog %s has no products", catalogPath)
	}

	req := api.IndexRequest{Products: products}
	if infoPath != "" {
		text, err := ingest.ReadInfoFile(infoPath)
		if err != nil {
			return api.IndexRequest{}, fmt.Errorf("reading info document: %w", err)
		}
		req.Info = text
	}
	return req, nil
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

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(bold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in " + config.FilePath() + ".\n\nValid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
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
	Short: "Remove a configuration value so its default applies",
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

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
