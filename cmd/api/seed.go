package main

import (
	"github.com/spf13/cobra"

	"libportal/internal/logger"
	"libportal/internal/repository/postgres"
	"libportal/internal/seed"
	"libportal/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load collection records from a YAML fixture",
	Long: `Seed creates every record listed in a YAML fixture through the normal
validation path. The fixture maps collection names to lists of records:

  gallery:
    - title: Reading room
      imageUrl: https://cdn.example.edu/library/reading-room.jpg

Invalid records are reported and skipped; valid ones are still created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		// Changes made here reach running servers through NOTIFY.
		registry := service.NewRegistry(postgres.NewDocumentPostgres(db), nil, logger.Component(log, "content"))
		res, err := seed.LoadFile(ctx, registry, args[0], logger.Component(log, "seed"))
		log.Info().Int("created", res.Total()).Interface("collections", res.Created).Msg("seed finished")
		return err
	},
}
