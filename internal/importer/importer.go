// Package importer orchestrates source runs: optional schema rebuild,
// bridge to the monitor, table transfers, imported-date stamping and the
// import ledger entry. Sources are processed one after another.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/bridge"
	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/internal/ledger"
	"github.com/mesh-intelligence/mdrimport/internal/logging"
	"github.com/mesh-intelligence/mdrimport/internal/metrics"
	"github.com/mesh-intelligence/mdrimport/internal/monitor"
	"github.com/mesh-intelligence/mdrimport/internal/schema"
	"github.com/mesh-intelligence/mdrimport/internal/transfer"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Options are the per-invocation choices of a run.
type Options struct {
	Rebuild bool
	// Harvest overrides the harvest read from the monitor when set.
	Harvest *types.Harvest
}

// Importer runs sources against one monitoring store.
type Importer struct {
	cfg     types.Config
	store   *monitor.Store
	ledger  *ledger.Ledger
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	newBridge func(*database.DB, database.Target, *zap.Logger) bridge.Bridge
}

// New returns an Importer. m may be nil.
func New(cfg types.Config, store *monitor.Store, log *zap.Logger, m *metrics.Metrics) *Importer {
	return &Importer{
		cfg:     cfg,
		store:   store,
		ledger:  ledger.New(store.DB()),
		log:     log,
		metrics: m,
		now:     time.Now,

		newBridge: bridge.New,
	}
}

// Run validates every id, then runs the sources in order. A failing
// source does not stop the others; the failures are returned joined.
func (im *Importer) Run(ctx context.Context, ids []int, opts Options) error {
	if err := im.store.ValidateSources(ctx, ids); err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		start := im.now()
		_, err := im.RunSource(ctx, id, opts)
		if im.metrics != nil {
			im.metrics.RunFinished(id, im.now().Sub(start), err)
		}
		if err != nil {
			im.log.Error("source run failed", zap.Int("source_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("source %d: %w", id, err))
			continue
		}
	}
	return errors.Join(errs...)
}

// RunSource imports one source and returns its persisted import event.
// The bridge is always torn down, even when the context is cancelled;
// the event is only persisted when every step succeeded.
func (im *Importer) RunSource(ctx context.Context, id int, opts Options) (*types.ImportEvent, error) {
	src, err := im.store.FetchSource(ctx, id)
	if err != nil {
		return nil, err
	}

	run, err := logging.ForSource(im.log, im.cfg.Log, src, im.now())
	if err != nil {
		return nil, err
	}
	defer run.Close()
	log := run.Logger

	log.Info("starting import",
		zap.Bool("rebuild", opts.Rebuild),
		zap.Stringers("capabilities", src.Capabilities.List()),
		zap.String("iec_storage", src.ActiveIEC().String()))

	db, err := database.OpenSource(ctx, im.cfg, src.DatabaseName)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if opts.Rebuild {
		if err := schema.NewBuilder(db, log).Rebuild(ctx, src); err != nil {
			return nil, err
		}
	}

	harvest, err := im.harvest(ctx, src.ID, opts)
	if err != nil {
		return nil, err
	}
	log.Info("harvest classified", zap.Stringer("harvest", harvest.Type), zap.Time("cutoff", harvest.Cutoff))

	br := im.newBridge(db, database.MonitorTarget(im.cfg), log)
	if err := br.Establish(ctx); err != nil {
		return nil, err
	}
	tornDown := false
	teardown := func() {
		tornDown = true
		if err := br.Teardown(context.WithoutCancel(ctx)); err != nil {
			log.Error("bridge teardown failed", zap.Error(err))
		}
	}
	defer func() {
		if !tornDown {
			teardown()
		}
	}()

	ev, err := im.ledger.Open(ctx, src.ID, opts.Rebuild)
	if err != nil {
		return nil, err
	}

	topts := transfer.Options{Harvest: harvest, Batch: im.cfg.Transfer}
	if im.metrics != nil {
		topts.Observer = im.metrics
	}
	engine := transfer.NewEngine(db, src, topts, log)

	if src.HasStudyTables() {
		if err := im.transfer(ctx, engine, ev, catalog.ForEntity(src, types.EntityStudy)); err != nil {
			return nil, err
		}
	}
	if err := im.transfer(ctx, engine, ev, catalog.ForEntity(src, types.EntityObject)); err != nil {
		return nil, err
	}

	if src.HasStudyTables() {
		_, err = br.UpdateStudiesImported(ctx, src.ID, ev.ID)
	} else {
		_, err = br.UpdateObjectsImported(ctx, src.ID, ev.ID)
	}
	if err != nil {
		return nil, err
	}

	teardown()

	if err := im.ledger.Close(ctx, ev); err != nil {
		return nil, err
	}
	log.Info("import complete",
		zap.Int("import_id", ev.ID),
		zap.Int64("studies", ev.StudyCount),
		zap.Int64("objects", ev.ObjectCount),
		zap.Int64("rows", ev.Total()),
		zap.Duration("elapsed", ev.TimeEnded.Sub(ev.TimeStarted)))
	return ev, nil
}

func (im *Importer) harvest(ctx context.Context, sourceID int, opts Options) (types.Harvest, error) {
	if opts.Harvest != nil {
		return *opts.Harvest, nil
	}
	return im.ledger.ClassifyHarvest(ctx, sourceID)
}

func (im *Importer) transfer(ctx context.Context, e *transfer.Engine, ev *types.ImportEvent, tables []types.TableSpec) error {
	results, err := e.TransferAll(ctx, tables)
	for _, r := range results {
		ev.Record(r.Table, r.Rows)
	}
	return err
}
