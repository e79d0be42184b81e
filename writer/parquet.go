package writer

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"
)

// memoryFileWriter implements ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{
		buffer: &bytes.Buffer{},
	}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// Bronze snapshot record schemas. Dates are serialized in the canonical
// YYYY-MM-DD layout so the files stay readable by any downstream engine.

type EcbFxRecord struct {
	Date         string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Code         string  `parquet:"name=code, type=BYTE_ARRAY, convertedtype=UTF8"`
	RateVsEur    float64 `parquet:"name=rate_vs_eur, type=DOUBLE"`
	IngestionTag string  `parquet:"name=ingestion_tag, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type PtaxRecord struct {
	Date         string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	UsdBrl       float64 `parquet:"name=usdbrl, type=DOUBLE"`
	IngestionTag string  `parquet:"name=ingestion_tag, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type CryptoRecord struct {
	Date         string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	BtcUsd       float64 `parquet:"name=btc_usd, type=DOUBLE"`
	IngestionTag string  `parquet:"name=ingestion_tag, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type IndexRecord struct {
	Date         string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Code         string  `parquet:"name=code, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name         string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Open         float64 `parquet:"name=open, type=DOUBLE"`
	High         float64 `parquet:"name=high, type=DOUBLE"`
	Low          float64 `parquet:"name=low, type=DOUBLE"`
	Close        float64 `parquet:"name=close, type=DOUBLE"`
	Volume       float64 `parquet:"name=volume, type=DOUBLE"`
	Source       string  `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	IngestionTag string  `parquet:"name=ingestion_tag, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// buildParquet serializes records into an in-memory snappy-compressed
// parquet file. schema is a pointer to the zero record type, records the
// matching record values.
func buildParquet(schema interface{}, records []interface{}) ([]byte, error) {
	mfw := newMemoryFileWriter()

	pw, err := pqwriter.NewParquetWriter(mfw, schema, 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range records {
		if err := pw.Write(record); err != nil {
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}

	return mfw.Bytes(), nil
}
