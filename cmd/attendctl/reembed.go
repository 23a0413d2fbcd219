package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
	"github.com/saturnino-fabrica-de-software/ponto/internal/face"
	"github.com/saturnino-fabrica-de-software/ponto/internal/repository"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

func newReembedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Recompute embeddings from stored capture images",
		Long: `Recompute the embedding set of every employee with captured face data,
using the embedding provider currently configured. Each employee's set is
replaced; images without a detectable face are skipped.

Examples:
  # Rebuild with the configured provider
  attendctl reembed

  # Rebuild with an explicit provider
  EMBEDDING_PROVIDER=dlib attendctl reembed`,
		Args: cobra.NoArgs,
		RunE: runReembed,
	}
	cmd.Flags().Bool("quiet", false, "Do not draw a progress bar")
	return cmd
}

func runReembed(cmd *cobra.Command, _ []string) error {
	quiet, _ := cmd.Flags().GetBool("quiet")
	ctx := cmd.Context()

	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	provider, err := face.NewEmbeddingProvider(e.cfg)
	if err != nil {
		return err
	}
	store, err := embedding.NewStore(e.cfg.EmbeddingBackend, e.cfg.EmbeddingsDir, e.pool)
	if err != nil {
		return err
	}

	svc := service.NewReembedService(
		repository.NewEmployeeRepository(e.pool),
		embedding.NewExtractor(provider, e.logger),
		store,
		audit.NewSlogLogger(e.logger),
		e.logger,
	)

	targets, err := svc.Targets(ctx)
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Employees with face data: %d\n", len(targets))
	if len(targets) == 0 {
		return nil
	}

	var progress func()
	if !quiet {
		bar := progressbar.NewOptions(len(targets),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Re-embedding"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("employees"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
		defer func() { _ = bar.Finish() }()
		progress = func() { _ = bar.Add(1) }
	}

	res, err := svc.Run(ctx, progress)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nDone: %d employees, %d images, %d embeddings\n",
		res.Employees, res.Images, res.Embeddings)
	return nil
}
