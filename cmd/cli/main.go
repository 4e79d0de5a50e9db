package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/shortlink/pkg/app"
	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/logging"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

var (
	importFile  string
	alias       string
	password    string
	expiresIn   int
	application *app.App

	rootCmd = &cobra.Command{
		Use:           "shortlink",
		Short:         "Manage short links from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.ClickAsync = false
			logger, _ := logging.New(logging.Options{Level: cfg.LogLevel, Writer: os.Stderr})

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("connect to db: %w", err)
			}
			application = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if application != nil {
				application.Close()
			}
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Dump every link, including inactive ones, as JSON to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doExport(cmd.Context(), application.Repo, cmd.OutOrStdout())
		},
	}

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Load links from an export file, skipping codes that already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(importFile)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := doImport(cmd.Context(), application.Repo, f, application.Logger)
			if err != nil {
				return err
			}
			application.Logger.Info("import finished", "imported", n)
			return nil
		},
	}

	createCmd = &cobra.Command{
		Use:   "create [url]",
		Short: "Shorten a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := application.Service.Shorten(cmd.Context(), domain.ShortenInput{
				URL:           args[0],
				Alias:         alias,
				Password:      password,
				ExpiresInDays: expiresIn,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", application.Config.BaseURL, link.Code())
			return nil
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats [code]",
		Short: "Print click statistics for a short code or alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := application.Service.GetStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
)

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "JSON file to import")
	_ = importCmd.MarkFlagRequired("file")

	createCmd.Flags().StringVar(&alias, "alias", "", "custom alias")
	createCmd.Flags().StringVar(&password, "password", "", "require this password before redirecting")
	createCmd.Flags().IntVar(&expiresIn, "expires-in", 0, "expire after this many days")

	rootCmd.AddCommand(exportCmd, importCmd, createCmd, statsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// exportedLink is the migration format. Unlike the API view of a link it
// carries the password hash so gated links survive a move.
type exportedLink struct {
	ID           string     `json:"id"`
	ShortCode    string     `json:"short_code"`
	CustomAlias  *string    `json:"custom_alias,omitempty"`
	OriginalURL  string     `json:"original_url"`
	PasswordHash *string    `json:"password_hash,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

func doExport(ctx context.Context, repo ports.LinkRepository, w io.Writer) error {
	links, err := repo.Dump(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	out := make([]exportedLink, 0, len(links))
	for _, l := range links {
		out = append(out, exportedLink{
			ID:           l.ID,
			ShortCode:    l.ShortCode,
			CustomAlias:  l.CustomAlias,
			OriginalURL:  l.OriginalURL,
			PasswordHash: l.PasswordHash,
			ExpiresAt:    l.ExpiresAt,
			IsActive:     l.IsActive,
			CreatedAt:    l.CreatedAt,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func doImport(ctx context.Context, repo ports.LinkRepository, r io.Reader, logger *slog.Logger) (int, error) {
	var links []exportedLink
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	count := 0
	for _, l := range links {
		link := &domain.Link{
			ID:           l.ID,
			ShortCode:    l.ShortCode,
			CustomAlias:  l.CustomAlias,
			OriginalURL:  l.OriginalURL,
			PasswordHash: l.PasswordHash,
			ExpiresAt:    l.ExpiresAt,
			IsActive:     l.IsActive,
			CreatedAt:    l.CreatedAt,
		}
		err := repo.CreateLink(ctx, link)
		if domain.IsConflict(err) {
			logger.Warn("skipping existing code", "code", link.Code())
			continue
		}
		if err != nil {
			return count, fmt.Errorf("import %s: %w", link.Code(), err)
		}
		count++
	}
	return count, nil
}
