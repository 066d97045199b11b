package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"libportal/internal/form"
	"libportal/internal/logger"
	"libportal/internal/model"
	"libportal/internal/repository/postgres"
	"libportal/internal/service"
	"libportal/internal/storage"
)

var importImages map[string]string

var importCmd = &cobra.Command{
	Use:   "import <collection> <record.json>",
	Short: "Create one record from pasted JSON, uploading its images",
	Long: `Import fills a new record from a JSON document the same way the admin
form's paste box does: recognised fields are applied, others are ignored.
Image fields can be filled from local files:

  libportal import librarians jane.json --image imageUrl=./jane.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		text, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		var up form.Uploader
		if len(importImages) > 0 {
			objStore, err := storage.NewMinIO(cfg.MinIO, cfg.Upload.PublicBaseURL)
			if err != nil {
				return fmt.Errorf("failed to initialize object storage: %w", err)
			}
			up = service.NewUploadService(objStore, cfg.Upload.Folder, int64(cfg.Upload.MaxBytes), logger.Component(log, "upload"))
		}

		reg := service.NewRegistry(postgres.NewDocumentPostgres(db), nil, logger.Component(log, "content"))
		in := importInput{text: string(text), images: importImages, uploader: up}

		var saved any
		switch args[0] {
		case model.CollectionLibraries:
			saved, err = importRecord(ctx, reg.Libraries, in)
		case model.CollectionLibrarians:
			saved, err = importRecord(ctx, reg.Librarians, in)
		case model.CollectionStaff:
			saved, err = importRecord(ctx, reg.Staff, in)
		case model.CollectionGallery:
			saved, err = importRecord(ctx, reg.Gallery, in)
		case model.CollectionEResources:
			saved, err = importRecord(ctx, reg.EResources, in)
		case model.CollectionNews:
			saved, err = importRecord[model.News](ctx, reg.News, in)
		case model.CollectionRecommendations:
			saved, err = importRecord(ctx, reg.Recommendations, in)
		default:
			return fmt.Errorf("unknown collection %q (want one of %s)", args[0], strings.Join(reg.Collections(), ", "))
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(saved)
	},
}

func init() {
	importCmd.Flags().StringToStringVar(&importImages, "image", nil, "Image field to upload from a local file (field=path, repeatable)")
}

type importInput struct {
	text     string
	images   map[string]string
	uploader form.Uploader
}

func importRecord[T model.Entity](ctx context.Context, svc service.ContentService[T], in importInput) (*T, error) {
	f := form.New[T](svc, in.uploader, logger.Component(log, "form"))
	defer func() {
		for _, n := range f.Notices() {
			log.Info().Str("level", string(n.Level)).Msg(n.Message)
		}
	}()

	applied, err := f.Paste(in.text)
	if err != nil {
		return nil, err
	}
	log.Debug().Strs("fields", applied).Msg("fields applied")

	for field, path := range in.images {
		if err := uploadFile(ctx, f, field, path); err != nil {
			return nil, err
		}
	}

	return f.Submit(ctx)
}

func uploadFile[T model.Entity](ctx context.Context, f *form.Form[T], field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	return f.UploadImage(ctx, field, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), file, info.Size())
}
