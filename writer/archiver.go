// Package writer archives each bronze stage's rows as a parquet snapshot
// file, locally and optionally to S3. The warehouse append is the source of
// truth; archive failures are reported to the caller, which treats them as
// warnings rather than stage failures.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "marketflow/config"
	"marketflow/logger"
	"marketflow/models"
)

type Archiver struct {
	cfg      *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewArchiver builds the archiver, creating an S3 client only when the
// storage config enables it.
func NewArchiver(cfg *appconfig.Config) (*Archiver, error) {
	log := logger.GetLogger()
	a := &Archiver{cfg: cfg, log: log}

	if !cfg.Storage.S3.Enabled {
		return a, nil
	}

	ctx := context.Background()
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	a.s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("archiver").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("s3 archival enabled")

	return a, nil
}

func (a *Archiver) ArchiveEcbFx(ctx context.Context, rows []models.EcbFxRate, tag string) error {
	records := make([]interface{}, len(rows))
	for i, row := range rows {
		records[i] = EcbFxRecord{
			Date:         models.FormatDate(row.Date),
			Code:         row.Code,
			RateVsEur:    row.RateVsEur,
			IngestionTag: row.IngestionTag,
		}
	}
	return a.archive(ctx, "ecb", fmt.Sprintf("ecb_fx_%s.parquet", tag), new(EcbFxRecord), records)
}

func (a *Archiver) ArchivePtax(ctx context.Context, rows []models.PtaxRate, tag string) error {
	records := make([]interface{}, len(rows))
	for i, row := range rows {
		records[i] = PtaxRecord{
			Date:         models.FormatDate(row.Date),
			UsdBrl:       row.UsdBrl,
			IngestionTag: row.IngestionTag,
		}
	}
	return a.archive(ctx, "bacen", fmt.Sprintf("ptax_%s.parquet", tag), new(PtaxRecord), records)
}

func (a *Archiver) ArchiveCryptoPrices(ctx context.Context, rows []models.CryptoPrice, tag string) error {
	records := make([]interface{}, len(rows))
	for i, row := range rows {
		records[i] = CryptoRecord{
			Date:         models.FormatDate(row.Date),
			BtcUsd:       row.BtcUsd,
			IngestionTag: row.IngestionTag,
		}
	}
	return a.archive(ctx, "coingecko", fmt.Sprintf("btc_usd_%s.parquet", tag), new(CryptoRecord), records)
}

func (a *Archiver) ArchiveIndexRaw(ctx context.Context, rows []models.IndexRaw, tag string) error {
	records := make([]interface{}, len(rows))
	for i, row := range rows {
		records[i] = IndexRecord{
			Date:         models.FormatDate(row.Date),
			Code:         row.Code,
			Name:         row.Name,
			Open:         row.Open,
			High:         row.High,
			Low:          row.Low,
			Close:        row.Close,
			Volume:       row.Volume,
			Source:       row.Source,
			IngestionTag: row.IngestionTag,
		}
	}
	return a.archive(ctx, "indices", fmt.Sprintf("indices_%s.parquet", tag), new(IndexRecord), records)
}

func (a *Archiver) archive(ctx context.Context, provider, filename string, schema interface{}, records []interface{}) error {
	if len(records) == 0 {
		return nil
	}

	log := a.log.WithComponent("archiver").WithFields(logger.Fields{
		"provider": provider,
		"file":     filename,
		"records":  len(records),
	})

	data, err := buildParquet(schema, records)
	if err != nil {
		return fmt.Errorf("archive %s/%s: %w", provider, filename, err)
	}

	localPath := filepath.Join(a.cfg.Storage.LocalDir, provider, filename)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("archive %s: create directory: %w", provider, err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return fmt.Errorf("archive %s: write %s: %w", provider, localPath, err)
	}
	log.WithFields(logger.Fields{"path": localPath, "bytes": len(data)}).Info("bronze snapshot written")

	if a.s3Client == nil {
		return nil
	}

	key := fmt.Sprintf("bronze/%s/%s", provider, filename)
	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("archive %s: upload s3://%s/%s: %w", provider, a.cfg.Storage.S3.Bucket, key, err)
	}
	log.WithFields(logger.Fields{"s3_key": key}).Info("bronze snapshot uploaded")

	return nil
}
