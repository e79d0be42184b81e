package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"marketflow/config"
	"marketflow/logger"
	"marketflow/models"
	"marketflow/processor"
	"marketflow/reader"
	"marketflow/reader/alphavantage"
	"marketflow/reader/bacen"
	"marketflow/reader/coingecko"
	"marketflow/reader/ecb"
	"marketflow/reader/stooq"
	"marketflow/reader/yahoo"
	"marketflow/warehouse"
	"marketflow/writer"
)

// Pipeline wires the source readers, the warehouse and the bronze archiver
// into the fixed stage sequence of one daily batch run.
type Pipeline struct {
	cfg  *config.Config
	wh   *warehouse.Client
	arch *writer.Archiver
	log  *logger.Log

	ecb   *ecb.Reader
	bacen *bacen.Reader
	gecko *coingecko.Reader
	stooq *stooq.Reader
	alpha *alphavantage.Reader
	yahoo *yahoo.Reader

	runID string
	tag   string
}

func New(cfg *config.Config, wh *warehouse.Client, arch *writer.Archiver) *Pipeline {
	client := reader.NewClient(cfg.HTTP.Timeout, cfg.HTTP.UserAgent)

	stooqClient := client
	if rps := cfg.Source.Stooq.RequestsPerSecond; rps > 0 {
		stooqClient = client.WithRateLimit(rate.NewLimiter(rate.Limit(rps), 1))
	}
	alphaClient := client
	if rpm := cfg.Source.Alphavantage.RequestsPerMinute; rpm > 0 {
		alphaClient = client.WithRateLimit(rate.NewLimiter(rate.Limit(rpm/60), 1))
	}

	return &Pipeline{
		cfg:   cfg,
		wh:    wh,
		arch:  arch,
		log:   logger.GetLogger(),
		ecb:   ecb.NewReader(cfg, client),
		bacen: bacen.NewReader(cfg, client),
		gecko: coingecko.NewReader(cfg, client),
		stooq: stooq.NewReader(cfg, stooqClient),
		alpha: alphavantage.NewReader(cfg, alphaClient),
		yahoo: yahoo.NewReader(cfg, client),
		runID: uuid.NewString(),
		tag:   time.Now().UTC().Format("20060102_150405"),
	}
}

// RunID identifies this batch run in logs and archive file names.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Stages returns the run's stages in execution order. Bronze stages ingest
// before silver derives, and gold always comes last.
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		{Name: "bronze_fx", Run: p.runBronzeFx},
		{Name: "bronze_crypto", Run: p.runBronzeCrypto},
		{Name: "bronze_ptax", Run: p.runBronzePtax},
		{Name: "bronze_index", Run: p.runBronzeIndex},
		{Name: "silver_fx", Run: p.runSilverFx},
		{Name: "silver_crypto", Run: p.runSilverCrypto},
		{Name: "silver_index", Run: p.runSilverIndex},
		{Name: "gold", Run: p.runGold},
	}
}

func (p *Pipeline) runBronzeFx(ctx context.Context) error {
	rows, err := p.ecb.Fetch(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("ecb returned no usable rows")
	}
	for i := range rows {
		rows[i].IngestionTag = p.tag
	}

	if err := p.arch.ArchiveEcbFx(ctx, rows, p.tag); err != nil {
		p.stageLog("bronze_fx").WithError(err).Warn("bronze archive failed, continuing")
	}
	if err := p.wh.AppendEcbFx(ctx, rows); err != nil {
		return err
	}
	p.reportRows("bronze_fx", len(rows))
	return nil
}

func (p *Pipeline) runBronzePtax(ctx context.Context) error {
	rows, err := p.bacen.Fetch(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("ptax returned no usable rows")
	}
	for i := range rows {
		rows[i].IngestionTag = p.tag
	}

	if err := p.arch.ArchivePtax(ctx, rows, p.tag); err != nil {
		p.stageLog("bronze_ptax").WithError(err).Warn("bronze archive failed, continuing")
	}
	if err := p.wh.AppendPtax(ctx, rows); err != nil {
		return err
	}
	p.reportRows("bronze_ptax", len(rows))
	return nil
}

func (p *Pipeline) runBronzeCrypto(ctx context.Context) error {
	rows, err := p.gecko.Fetch(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("coingecko returned no usable rows")
	}
	for i := range rows {
		rows[i].IngestionTag = p.tag
	}

	if err := p.arch.ArchiveCryptoPrices(ctx, rows, p.tag); err != nil {
		p.stageLog("bronze_crypto").WithError(err).Warn("bronze archive failed, continuing")
	}
	if err := p.wh.AppendCryptoPrices(ctx, rows); err != nil {
		return err
	}
	p.reportRows("bronze_crypto", len(rows))
	return nil
}

// runBronzeIndex ingests all three index providers in one stage. A provider
// transport failure still aborts the run; only the combined zero-row case is
// checked after all providers ran.
func (p *Pipeline) runBronzeIndex(ctx context.Context) error {
	var rows []models.IndexRaw

	for _, fetch := range []struct {
		provider string
		run      func(context.Context) ([]models.IndexRaw, error)
	}{
		{"stooq", p.stooq.Fetch},
		{"alphavantage", p.alpha.Fetch},
		{"yahoo", p.yahoo.Fetch},
	} {
		got, err := fetch.run(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", fetch.provider, err)
		}
		p.stageLog("bronze_index").WithFields(logger.Fields{
			"provider": fetch.provider,
			"rows":     len(got),
		}).Info("provider fetch complete")
		rows = append(rows, got...)
	}

	if len(rows) == 0 {
		return fmt.Errorf("no index provider returned usable rows")
	}
	for i := range rows {
		rows[i].IngestionTag = p.tag
	}

	if err := p.arch.ArchiveIndexRaw(ctx, rows, p.tag); err != nil {
		p.stageLog("bronze_index").WithError(err).Warn("bronze archive failed, continuing")
	}
	if err := p.wh.AppendIndexRaw(ctx, rows); err != nil {
		return err
	}
	p.reportRows("bronze_index", len(rows))
	return nil
}

func (p *Pipeline) runSilverFx(ctx context.Context) error {
	ecbRows, err := p.wh.LoadEcbFx(ctx)
	if err != nil {
		return err
	}
	ptaxRows, err := p.wh.LoadPtax(ctx)
	if err != nil {
		return err
	}

	rates := processor.TriangulateFx(ecbRows, ptaxRows)
	if len(rates) == 0 {
		return fmt.Errorf("triangulation produced no rates from %d ecb and %d ptax rows", len(ecbRows), len(ptaxRows))
	}
	if err := p.wh.UpsertFxRates(ctx, rates); err != nil {
		return err
	}
	p.reportRows("silver_fx", len(rates))
	return nil
}

func (p *Pipeline) runSilverCrypto(ctx context.Context) error {
	btcRows, err := p.wh.LoadCryptoPrices(ctx)
	if err != nil {
		return err
	}
	ptaxRows, err := p.wh.LoadPtax(ctx)
	if err != nil {
		return err
	}

	rates := processor.NormalizeCrypto(btcRows, ptaxRows)
	if len(rates) == 0 {
		return fmt.Errorf("normalization produced no rates from %d bronze rows", len(btcRows))
	}
	if err := p.wh.UpsertCryptoRates(ctx, rates); err != nil {
		return err
	}
	p.reportRows("silver_crypto", len(rates))
	return nil
}

func (p *Pipeline) runSilverIndex(ctx context.Context) error {
	raw, err := p.wh.LoadIndexRaw(ctx)
	if err != nil {
		return err
	}

	rows := processor.NormalizeIndices(raw)
	if len(rows) == 0 {
		return fmt.Errorf("normalization produced no rows from %d bronze rows", len(raw))
	}
	if err := p.wh.UpsertIndexOhlc(ctx, rows); err != nil {
		return err
	}
	p.reportRows("silver_index", len(rows))
	return nil
}

func (p *Pipeline) runGold(ctx context.Context) error {
	fxRows, err := p.wh.LoadFxRates(ctx)
	if err != nil {
		return err
	}
	cryptoRows, err := p.wh.LoadCryptoRates(ctx)
	if err != nil {
		return err
	}
	indexRows, err := p.wh.LoadIndexOhlc(ctx)
	if err != nil {
		return err
	}

	if err := p.wh.ReplaceDimCurrency(ctx, processor.BuildDimCurrency(fxRows)); err != nil {
		return err
	}
	if err := p.wh.ReplaceDimIndex(ctx, processor.BuildDimIndex(indexRows)); err != nil {
		return err
	}

	factFx := processor.BuildFactFx(fxRows)
	if err := p.wh.UpsertFactFx(ctx, factFx); err != nil {
		return err
	}
	factCrypto := processor.BuildFactCrypto(cryptoRows)
	if err := p.wh.UpsertFactCrypto(ctx, factCrypto); err != nil {
		return err
	}
	factIndex := processor.BuildFactIndex(indexRows)
	if err := p.wh.UpsertFactIndex(ctx, factIndex); err != nil {
		return err
	}

	p.reportRows("gold", len(factFx)+len(factCrypto)+len(factIndex))
	return nil
}

func (p *Pipeline) stageLog(stage string) *logger.Entry {
	return p.log.WithComponent("pipeline").WithFields(logger.Fields{
		"stage":  stage,
		"run_id": p.runID,
	})
}

func (p *Pipeline) reportRows(stage string, count int) {
	p.stageLog(stage).WithFields(logger.Fields{"rows": count}).Info("rows written")
	p.log.LogMetric("pipeline", "RowsWritten", float64(count), logger.Fields{"stage": stage})
}
