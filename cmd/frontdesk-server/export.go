package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nutes/frontdesk/internal/config"
	"github.com/nutes/frontdesk/internal/platform/blobstore"
	"github.com/nutes/frontdesk/internal/platform/export"
	"github.com/nutes/frontdesk/internal/platform/store"
)

// Dashboard names accepted by the export command.
const (
	dashboardAnamnesis = "anamnesis"
	dashboardPatients  = "patients"
)

// exportFilePrefix matches the download names of the HTTP export endpoints.
var exportFilePrefix = map[string]string{
	dashboardAnamnesis: "anamnese",
	dashboardPatients:  "pacientes",
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a dashboard snapshot as an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("dashboard")
			out, _ := cmd.Flags().GetString("out")
			toS3, _ := cmd.Flags().GetBool("s3")

			cfg, logger, err := loadConfig()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			records := newStore(cfg, logger)
			defer closeStore(records, logger)

			raw, generatedAt, err := buildWorkbook(ctx, cfg, records, name)
			if err != nil {
				return err
			}
			filename := fmt.Sprintf("%s-%s.xlsx", exportFilePrefix[name], generatedAt.Format("2006-01-02"))

			if toS3 {
				obj, err := uploadWorkbook(ctx, cfg, filename, raw)
				if err != nil {
					return err
				}
				fmt.Printf("Uploaded s3://%s/%s (%d bytes, sha256 %s)\n",
					cfg.ExportS3Bucket, obj.Key, obj.Size, obj.Hash)
				return nil
			}

			if out == "" {
				out = filename
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", out, len(raw))
			return nil
		},
	}
	cmd.Flags().String("dashboard", dashboardPatients, "Dashboard to export: anamnesis or patients")
	cmd.Flags().String("out", "", "Output file (defaults to the dated download name)")
	cmd.Flags().Bool("s3", false, "Upload to EXPORT_S3_BUCKET instead of writing a local file")
	return cmd
}

// buildWorkbook computes one dashboard and renders it as a workbook.
func buildWorkbook(ctx context.Context, cfg *config.Config, records store.Store, name string) ([]byte, time.Time, error) {
	anamnesisSvc, cohortSvc, err := dashboards(cfg, records)
	if err != nil {
		return nil, time.Time{}, err
	}

	var tables []export.Table
	var generatedAt time.Time
	switch name {
	case dashboardAnamnesis:
		d, err := anamnesisSvc.Dashboard(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		tables, generatedAt = d.Tables(), d.GeneratedAt
	case dashboardPatients:
		d, err := cohortSvc.Dashboard(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		tables, generatedAt = d.Tables(), d.GeneratedAt
	default:
		return nil, time.Time{}, fmt.Errorf("unknown dashboard %q (want %q or %q)", name, dashboardAnamnesis, dashboardPatients)
	}

	raw, err := export.WriteXLSX(tables)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("render %s workbook: %w", name, err)
	}
	return raw, generatedAt, nil
}

func uploadWorkbook(ctx context.Context, cfg *config.Config, key string, raw []byte) (*blobstore.Object, error) {
	if cfg.ExportS3Bucket == "" {
		return nil, fmt.Errorf("EXPORT_S3_BUCKET is required with --s3")
	}
	client, err := blobstore.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	blobs := blobstore.NewS3BlobStore(client, cfg.ExportS3Bucket, cfg.ExportS3Prefix)
	return putWorkbook(ctx, blobs, key, raw)
}

func putWorkbook(ctx context.Context, blobs blobstore.BlobStore, key string, raw []byte) (*blobstore.Object, error) {
	obj, err := blobs.Put(ctx, blobstore.Object{Key: key, ContentType: export.ContentType}, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	return obj, nil
}
