// Package cli provides the Cobra-based CLI for the product catalog.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"productcatalog/config"
	"productcatalog/domain"
	"productcatalog/query"
	"productcatalog/server"
	"productcatalog/validation"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Product catalog data layer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// allow tests to inject the session; a cleared session reloads here
			if injected() {
				return ctrl.Load(cmd.Context())
			}
			c, err := config.Load(v, v.GetString("config"), v.GetString("env-file"))
			if err != nil {
				return err
			}
			cfg = c
			return setup(cmd.Context(), c)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if ctrl == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := ctrl.Flush(ctx); err != nil {
				return fmt.Errorf("changes kept in memory but not saved: %w", err)
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (yaml, json or toml)")
	pf.String("env-file", ".env", "dotenv file with CATALOG_* variables")
	pf.String("store", "file", "store backend: memory|file|redis|sqlite")
	pf.String("store-dir", "data", "directory for the file store")
	pf.String("store-dsn", "data/catalog.db", "sqlite database path")
	pf.String("redis-addr", "localhost:6379", "redis address")
	pf.String("remote", "", "products API base URL")
	pf.String("log-level", "info", "log level")

	for key, flag := range map[string]string{
		"config":           "config",
		"env-file":         "env-file",
		"store.kind":       "store",
		"store.dir":        "store-dir",
		"store.dsn":        "store-dsn",
		"store.redis_addr": "redis-addr",
		"remote.base_url":  "remote",
		"log.level":        "log-level",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(
		newListCmd(),
		newGetCmd(),
		newAddCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newImportCmd(),
		newExportCmd(),
		newClearCmd(),
		newServeCmd(v),
		newShellCmd(),
	)
	return rootCmd
}

func defaultQuery(c config.Config) query.Query {
	q := query.DefaultQuery()
	q.Limit = c.Query.PageSize
	return q
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printValidation(w io.Writer, err error) {
	var vfe *domain.ValidationFailedError
	if errors.As(err, &vfe) {
		for _, fe := range vfe.Errors {
			fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Message)
		}
	}
}

func stockLabel(in bool) string {
	if in {
		return "in stock"
	}
	return "out of stock"
}

func newListCmd() *cobra.Command {
	var (
		category, search, sortBy, order, output string
		priceRange                              string
		minPrice, maxPrice                      float64
		inStock                                 bool
		page, limit                             int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := defaultQuery(cfg)
			q.Category = domain.Category(category)
			q.SearchQuery = search
			if cmd.Flags().Changed("sort-by") {
				q.SortBy = domain.SortKey(sortBy)
			}
			if cmd.Flags().Changed("order") {
				q.SortOrder = domain.SortOrder(order)
			}
			if priceRange != "" {
				r, ok := domain.PriceRangeByKey(priceRange)
				if !ok {
					return domain.NewInvalidProductError("priceRange", "unknown price range", priceRange)
				}
				q.ProductFilters = r.Filters(q.ProductFilters)
			}
			if cmd.Flags().Changed("min-price") {
				q.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max-price") {
				q.MaxPrice = &maxPrice
			}
			if cmd.Flags().Changed("in-stock") {
				q.InStock = &inStock
			}
			q.Page = page
			if cmd.Flags().Changed("limit") {
				q.Limit = limit
			}
			if err := q.Validate(); err != nil {
				return err
			}

			res := ctrl.Run(q)
			out := cmd.OutOrStdout()
			if output == "json" {
				return printJSON(out, res)
			}
			for _, p := range res.Items {
				fmt.Fprintf(out, "%s | %s | %s | %s | %s\n",
					p.ID, p.Name, validation.FormatPrice(p.Price), p.Category.Label(), stockLabel(p.InStock))
			}
			fmt.Fprintf(out, "page %d/%d, %d of %d products", res.Page, res.TotalPages, len(res.Items), res.Total)
			if q.HasActive() {
				fmt.Fprint(out, " (filtered)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&category, "category", "", "category")
	f.StringVar(&search, "search", "", "search name, description and tags")
	f.StringVar(&priceRange, "price-range", "", "preset bracket: under-25|25-50|50-100|100-200|over-200")
	f.Float64Var(&minPrice, "min-price", 0, "min price")
	f.Float64Var(&maxPrice, "max-price", 0, "max price")
	f.BoolVar(&inStock, "in-stock", false, "stock status")
	f.StringVar(&sortBy, "sort-by", "", "sort field: name|price|createdAt")
	f.StringVar(&order, "order", "", "sort order: asc|desc")
	f.IntVar(&page, "page", 1, "page")
	f.IntVar(&limit, "limit", 0, "page size")
	f.StringVar(&output, "output", "", "output format")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get product by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := ctrl.GetByID(args[0])
			if !ok {
				return domain.NewProductNotFoundError(args[0])
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

// formFlags registers the editable product fields on cmd.
func formFlags(cmd *cobra.Command, form *domain.ProductForm) {
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "name")
	f.StringVar(&form.Description, "description", "", "description")
	f.StringVar(&form.Price, "price", "", "price")
	f.StringVar((*string)(&form.Category), "category", "", "category")
	f.StringVar(&form.ImageURL, "image-url", "", "image URL or /uploads/ path")
	f.BoolVar(&form.InStock, "in-stock", false, "in stock")
	f.StringVar(&form.Tags, "tags", "", "comma separated tags")
	f.StringVar(&form.SKU, "sku", "", "SKU")
	f.StringVar(&form.Brand, "brand", "", "brand")
}

func newAddCmd() *cobra.Command {
	var form domain.ProductForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			p, err := ctrl.CreateFromForm(form)
			if err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}
			log.Info("product created", zap.String("product_id", p.ID), zap.Duration("duration", time.Since(start)))
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	formFlags(cmd, &form)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var changes domain.ProductForm
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			existing, ok := ctrl.GetByID(id)
			if !ok {
				return domain.NewProductNotFoundError(id)
			}

			form := validation.EntityToForm(existing)
			fl := cmd.Flags()
			if fl.Changed("name") {
				form.Name = changes.Name
			}
			if fl.Changed("description") {
				form.Description = changes.Description
			}
			if fl.Changed("price") {
				form.Price = changes.Price
			}
			if fl.Changed("category") {
				form.Category = changes.Category
			}
			if fl.Changed("image-url") {
				form.ImageURL = changes.ImageURL
			}
			if fl.Changed("in-stock") {
				form.InStock = changes.InStock
			}
			if fl.Changed("tags") {
				form.Tags = changes.Tags
			}
			if fl.Changed("sku") {
				form.SKU = changes.SKU
			}
			if fl.Changed("brand") {
				form.Brand = changes.Brand
			}

			start := time.Now()
			p, err := ctrl.UpdateFromForm(id, form)
			if err != nil {
				printValidation(cmd.ErrOrStderr(), err)
				return err
			}
			log.Info("product updated", zap.String("product_id", id), zap.Duration("duration", time.Since(start)))
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	formFlags(cmd, &changes)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(cmd, fmt.Sprintf("Delete %s?", args[0])) {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			if err := ctrl.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (y/N): ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	resp := strings.TrimSpace(line)
	return resp == "y" || resp == "Y"
}

func newStatsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := ctrl.Stats()
			out := cmd.OutOrStdout()
			if output == "json" {
				return printJSON(out, st)
			}
			fmt.Fprintf(out, "total: %d\nin stock: %d\nout of stock: %d\n", st.Total, st.InStock, st.OutOfStock)
			for _, c := range domain.Categories {
				fmt.Fprintf(out, "  %s: %d\n", c.Label(), st.Categories[c])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "output format")
	return cmd
}

// decodeProducts accepts a JSON array, NDJSON or a single object.
func decodeProducts(b []byte) ([]domain.Product, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, errors.New("empty file")
	}

	var products []domain.Product
	if b[0] == '[' {
		if err := json.Unmarshal(b, &products); err != nil {
			return nil, err
		}
		return products, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(b))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var p domain.Product
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func newImportCmd() *cobra.Command {
	var importFile string
	cmd := &cobra.Command{
		Use:   "import --file <file>",
		Short: "Import products from a JSON array or NDJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if importFile == "" {
				return errors.New("--file required")
			}
			b, err := os.ReadFile(importFile)
			if err != nil {
				return err
			}
			products, err := decodeProducts(b)
			if err != nil {
				return err
			}

			valid := make([]domain.Product, 0, len(products))
			for _, p := range products {
				if res := validation.Validate(validation.EntityToForm(p)); !res.IsValid {
					log.Warn("skipping invalid product", zap.String("product_id", p.ID), zap.Int("errors", len(res.Errors)))
					continue
				}
				valid = append(valid, p)
			}

			ctx := cmd.Context()
			// pending edits must reach the store before it is merged into
			if err := ctrl.Flush(ctx); err != nil {
				return err
			}
			added, ok := storage.ImportProducts(ctx, valid)
			if !ok {
				return domain.NewPersistenceError(storage.ProductsKey(), errors.New("import not saved"))
			}
			if err := ctrl.Refetch(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d products\n", added, len(products))
			return nil
		},
	}
	cmd.Flags().StringVar(&importFile, "file", "", "input file")
	return cmd
}

func newExportCmd() *cobra.Command {
	var exportFile, exportCategory string
	cmd := &cobra.Command{
		Use:   "export [--file <file>]",
		Short: "Export products to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := ctrl.Flush(ctx); err != nil {
				return err
			}

			var b []byte
			var err error
			if exportCategory == "" {
				b, err = storage.ExportProducts(ctx)
			} else {
				list := query.Filter(ctrl.Products(), domain.ProductFilters{Category: domain.Category(exportCategory)})
				b, err = json.MarshalIndent(list, "", "  ")
			}
			if err != nil {
				return err
			}
			if exportFile == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}
			return os.WriteFile(exportFile, b, 0o644)
		},
	}
	cmd.Flags().StringVar(&exportFile, "file", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&exportCategory, "category", "", "category")
	return cmd
}

func newClearCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored catalog; the next load repopulates it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(cmd, "Remove every stored product?") {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			if err := ctrl.Flush(cmd.Context()); err != nil {
				log.Warn("clearing with unsaved changes", zap.Error(err))
			}
			if !storage.ClearProducts(cmd.Context()) {
				return domain.NewPersistenceError(storage.ProductsKey(), errors.New("clear failed"))
			}
			// drop the in-memory baseline so later mutations cannot re-persist it
			ctrl.Unload()
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(ctrl, cfg.Server, log).Run(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "catalog> ")
				line, err := r.ReadString('\n')
				line = strings.TrimSpace(line)
				if line == "exit" || line == "quit" {
					return nil
				}
				if line != "" {
					sub := NewRootCmd()
					sub.SetArgs(strings.Fields(line))
					sub.SetOut(cmd.OutOrStdout())
					sub.SetErr(cmd.ErrOrStderr())
					sub.SetIn(r)
					if err := sub.ExecuteContext(cmd.Context()); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				}
				if err != nil {
					return nil
				}
			}
		},
	}
}

// Execute runs the CLI against os.Args.
func Execute() error {
	defer teardown()
	return NewRootCmd().ExecuteContext(context.Background())
}
