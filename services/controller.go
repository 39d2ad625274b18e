package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airbnb-harvester/config"
	"airbnb-harvester/models"
	"airbnb-harvester/monitoring"
	"airbnb-harvester/scraper/airbnb"
	"airbnb-harvester/scraper/render"
	"airbnb-harvester/storage"
	"airbnb-harvester/utils"
)

// ErrSessionCreate means no browser session could be started. It ends the
// run early, after saving whatever was collected.
var ErrSessionCreate = errors.New("create renderer session")

// Phase is a RunController state.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseDiscovering
	PhaseExtracting
	PhaseSaving
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseDiscovering:
		return "discovering"
	case PhaseExtracting:
		return "extracting"
	case PhaseSaving:
		return "saving"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Dependencies are the collaborators a Controller drives.
type Dependencies struct {
	Renderer   render.Renderer
	Harvester  *airbnb.Harvester
	Extractor  *airbnb.Extractor
	Hosts      *airbnb.HostEnricher // nil disables host enrichment
	Store      storage.Store
	Checkpoint storage.Checkpointer // nil disables checkpoints
	Mirror     storage.Mirror       // optional
	Metrics    *monitoring.Metrics
}

// Controller runs one time-boxed harvest: Init → Discovering → Extracting →
// Saving → Done. Saving is reached on every path.
type Controller struct {
	cfg      *config.Config
	deps     Dependencies
	cleaner  *Cleaner
	insights *InsightService
	retry    *utils.RetryConfig
	logger   *utils.Logger

	phase        Phase
	pagesVisited int
	newURLs      int
}

// NewController wires a Controller.
func NewController(cfg *config.Config, deps Dependencies, logger *utils.Logger) *Controller {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if deps.Checkpoint == nil {
		deps.Checkpoint = storage.NopCheckpoint{}
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}
	return &Controller{
		cfg:      cfg,
		deps:     deps,
		cleaner:  NewCleaner(logger),
		insights: NewInsightService(logger),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Insights returns the report service used by Run.
func (c *Controller) Insights() *InsightService { return c.insights }

// Run executes the whole state machine. Cancelling ctx trips the budget; work
// in flight still finishes and the results are saved. The report is returned
// even when err is non-nil, unless Init failed; then only an empty run file
// is written.
func (c *Controller) Run(ctx context.Context) (*models.RunReport, error) {
	c.enter(PhaseInit)
	state := NewRunState()
	prior, err := c.init(ctx, state)
	if err != nil {
		// The master is left alone, but the run file still marks the run as finished.
		if werr := c.deps.Store.WriteAll(c.cfg.RunOutputPath, nil); werr != nil {
			err = errors.Join(err, werr)
		}
		c.enter(PhaseDone)
		return nil, err
	}

	budget := NewBudget(c.cfg.TimeLimit(), c.cfg.MaxNewListings, state.Len)
	stop := budget.TripOnDone(ctx)
	defer stop()
	if ctx.Err() != nil {
		budget.Trip(StopInterrupted)
	}

	// Signals stop new work through the budget; they must not abort an
	// extraction or a save halfway.
	workCtx := context.WithoutCancel(ctx)

	c.logger.Info("[run] Run %s — limit %.1f min, quota %d new listings, %d worker(s)",
		state.RunID, c.cfg.TimeLimitMinutes, c.cfg.MaxNewListings, c.cfg.MaxConcurrency)

	c.enter(PhaseDiscovering)
	fatal := c.discover(workCtx, state, budget)
	if fatal == nil {
		c.saveCheckpoint(workCtx, state)
		c.enter(PhaseExtracting)
		fatal = c.extract(workCtx, state, budget)
	}
	if fatal != nil {
		c.logger.Error("[run] %v — saving what was collected", fatal)
	}

	c.enter(PhaseSaving)
	report, saveErr := c.save(workCtx, state, prior, budget)
	c.enter(PhaseDone)

	return report, errors.Join(fatal, saveErr)
}

func (c *Controller) enter(p Phase) {
	c.logger.Debug("[run] %s → %s", c.phase, p)
	c.phase = p
}

// init loads the master dataset, seeds the seen set and restores any checkpoint.
func (c *Controller) init(ctx context.Context, state *RunState) ([]models.ListingRecord, error) {
	prior, err := c.deps.Store.LoadAll(c.cfg.MasterPath)
	if err != nil {
		return nil, fmt.Errorf("load master dataset: %w", err)
	}
	prior = c.cleaner.Clean(prior)
	for _, rec := range prior {
		state.Seen.Add(rec.URL)
	}
	c.logger.Info("[run] Master dataset: %d known listings", len(prior))

	if c.deps.Mirror != nil {
		urls, err := c.deps.Mirror.FetchURLs(ctx)
		if err != nil {
			c.logger.Warn("[store] Could not read URLs from the database mirror: %v", err)
		} else if n := state.Seen.AddAll(urls); n > 0 {
			c.logger.Info("[store] %d extra known listings from the database mirror", n)
		}
	}

	cp, ok, err := c.deps.Checkpoint.Load(ctx)
	switch {
	case err != nil:
		c.logger.Warn("[checkpoint] Ignoring unreadable checkpoint: %v", err)
	case ok:
		state.Restore(cp)
		c.logger.Info("[checkpoint] Resuming run %s: %d records, %d pending URLs",
			state.RunID, state.Len(), len(state.Pending()))
	}
	return prior, nil
}

// discover pages through the search results until the budget, the page
// bound, or a page with no new listings stops it.
func (c *Controller) discover(ctx context.Context, state *RunState, budget *Budget) error {
	if budget.ShouldStop() {
		c.logger.Info("[harvest] Budget spent before discovery (%s)", budget.Reason())
		return nil
	}

	sess, err := c.deps.Renderer.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionCreate, err)
	}
	defer sess.Close()

	pacer := utils.NewPacer(c.cfg.RateLimitMs)
	for cursor := 0; ; cursor++ {
		if budget.ShouldStop() {
			c.logger.Info("[harvest] Stopping discovery: %s", budget.Reason())
			return nil
		}
		if c.cfg.MaxPages > 0 && cursor >= c.cfg.MaxPages {
			c.logger.Info("[harvest] Reached the %d page limit", c.cfg.MaxPages)
			return nil
		}
		if state.Len()+len(state.Pending()) >= c.cfg.MaxNewListings {
			c.logger.Info("[harvest] Enough candidates queued for the quota")
			return nil
		}
		_ = pacer.Wait(ctx)

		var res airbnb.HarvestResult
		err := c.retry.Do(ctx, fmt.Sprintf("search page %d", cursor+1), func() error {
			var err error
			res, err = c.deps.Harvester.HarvestPage(ctx, sess, cursor)
			return err
		})
		c.pagesVisited++
		c.deps.Metrics.PagesVisited.Inc()
		if err != nil {
			c.deps.Metrics.IncNavigationError("discovery")
			c.logger.Warn("[harvest] Page %d failed, ending discovery: %v", cursor+1, err)
			return nil
		}
		for strategy, n := range res.ByStrategy {
			c.deps.Metrics.AddCandidates(strategy, n)
		}

		added := 0
		for _, u := range res.URLs {
			if state.Accept(u) {
				added++
			}
		}
		c.newURLs += added
		c.deps.Metrics.NewURLs.Add(float64(added))
		c.logger.Info("[harvest] Page %d (offset %d): %d candidates, %d new — %d queued",
			cursor+1, c.deps.Harvester.Offset(cursor), len(res.URLs), added, len(state.Pending()))

		if added == 0 {
			c.logger.Info("[harvest] No new listings on page %d, results covered", cursor+1)
			return nil
		}
	}
}

type extraction struct {
	url     string
	rec     *models.ListingRecord
	skipped bool
}

// extract visits every pending URL on a bounded pool. Each worker borrows its
// own session; one collector goroutine commits results to state.
func (c *Controller) extract(ctx context.Context, state *RunState, budget *Budget) error {
	urls := state.Pending()
	if len(urls) == 0 {
		c.logger.Info("[extract] Nothing to extract")
		return nil
	}
	if budget.ShouldStop() {
		c.logger.Info("[extract] Budget spent before extraction (%s), %d URLs left pending", budget.Reason(), len(urls))
		return nil
	}

	workers := c.cfg.MaxConcurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(urls) {
		workers = len(urls)
	}
	sessions := make(chan render.Session, workers)
	for i := 0; i < workers; i++ {
		sess, err := c.deps.Renderer.NewSession(ctx)
		if err != nil {
			if i == 0 {
				return fmt.Errorf("%w: %w", ErrSessionCreate, err)
			}
			c.logger.Warn("[extract] Only %d of %d sessions started: %v", i, workers, err)
			break
		}
		sessions <- sess
	}
	pool := utils.NewWorkerPool(len(sessions), c.cfg.RateLimitMs)
	defer func() {
		close(sessions)
		for sess := range sessions {
			_ = sess.Close()
		}
	}()

	results := make(chan extraction, pool.Size())
	progress := make(chan struct{}, 1)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		c.collect(ctx, state, results, progress)
	}()

	hostBudget := stopFunc(budget.Expired)
	dispatched := 0
	for _, u := range urls {
		if !c.awaitSlot(state, budget, progress) {
			c.logger.Info("[extract] Stopping dispatch: %s, %d URLs left pending", budget.Reason(), len(urls)-dispatched)
			break
		}
		state.Reserve()
		dispatched++

		u := u
		pool.Submit(func() {
			if budget.Expired() {
				results <- extraction{url: u, skipped: true}
				return
			}
			sess := <-sessions
			defer func() { sessions <- sess }()
			results <- extraction{url: u, rec: c.processListing(ctx, sess, u, hostBudget)}
		})
	}

	pool.Wait()
	close(results)
	<-collected

	c.logger.Info("[extract] Done: %d records this run, %d processed", state.Len(), state.Processed())
	return nil
}

// awaitSlot reports whether one more listing may be dispatched. While the
// quota is only covered by in-flight work it waits for that work to settle,
// since a failed listing frees its slot again.
func (c *Controller) awaitSlot(state *RunState, budget *Budget, progress <-chan struct{}) bool {
	for {
		if budget.ShouldStop() {
			return false
		}
		if state.Collected() < c.cfg.MaxNewListings {
			return true
		}
		<-progress
	}
}

func (c *Controller) collect(ctx context.Context, state *RunState, results <-chan extraction, progress chan<- struct{}) {
	every := c.cfg.CheckpointEvery
	notify := func() {
		select {
		case progress <- struct{}{}:
		default:
		}
	}
	for r := range results {
		if r.skipped {
			state.Release()
			notify()
			continue
		}
		state.Commit(r.url, r.rec)
		notify()
		if r.rec != nil {
			c.deps.Metrics.ListingsScraped.Inc()
			if r.rec.LicenseCode != "" {
				c.deps.Metrics.LicensesFound.Inc()
			}
			c.logger.Info("[extract] %d/%d %s | license=%q host=%q",
				state.Len(), c.cfg.MaxNewListings, r.url, r.rec.LicenseCode, r.rec.HostName)
		}
		if every > 0 && state.Processed()%every == 0 {
			c.saveCheckpoint(ctx, state)
		}
	}
}

// processListing extracts one listing. It returns nil when the page never
// loaded; a panic after navigation degrades to a URL-only record.
func (c *Controller) processListing(ctx context.Context, sess render.Session, url string, budget airbnb.Stopper) (rec *models.ListingRecord) {
	itemCtx, cancel := context.WithTimeout(ctx, c.cfg.ItemTimeout)
	defer cancel()

	navigated := false
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("[extract] %s: recovered from panic: %v", url, r)
			rec = nil
			if navigated {
				rec = &models.ListingRecord{URL: url}
			}
		}
	}()

	var page render.Page
	err := c.retry.Do(itemCtx, "listing "+url, func() error {
		p, err := sess.Open(itemCtx, url, render.WaitFor(c.deps.Extractor.Strategies().ListingWait))
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		c.deps.Metrics.IncNavigationError("listing")
		c.logger.Warn("[extract] Skipping %s: %v", url, err)
		return nil
	}
	navigated = true
	defer page.Close()

	r := c.deps.Extractor.Extract(page, url)
	if c.deps.Hosts != nil && r.HostProfileURL != "" {
		c.deps.Hosts.Enrich(itemCtx, sess, &r, budget)
		c.deps.Metrics.HostsEnriched.Inc()
	}
	return &r
}

// saveCheckpoint is best effort: a failed checkpoint never stops the run.
func (c *Controller) saveCheckpoint(ctx context.Context, state *RunState) {
	cp := state.Checkpoint()
	if err := c.deps.Checkpoint.Save(ctx, cp); err != nil {
		c.logger.Warn("[checkpoint] Save failed: %v", err)
		return
	}
	c.logger.Debug("[checkpoint] Saved %d records, %d pending", len(cp.ScrapedRecords), len(cp.PendingURLs))
}

// save writes the run output and the merged master. Both writes are attempted
// even if the first fails.
func (c *Controller) save(ctx context.Context, state *RunState, prior []models.ListingRecord, budget *Budget) (*models.RunReport, error) {
	// Restored checkpoint records are normalised like fresh ones. Clean is
	// idempotent, so an already clean record is written back unchanged.
	run := c.cleaner.Clean(state.Records())
	master := storage.MergeMaster(prior, run)

	var errs []error
	if err := c.deps.Store.WriteAll(c.cfg.RunOutputPath, run); err != nil {
		errs = append(errs, err)
	}
	if err := c.deps.Store.WriteAll(c.cfg.MasterPath, master); err != nil {
		errs = append(errs, err)
	}

	if c.deps.Mirror != nil {
		if err := c.deps.Mirror.Upsert(ctx, master); err != nil {
			c.logger.Warn("[store] Database mirror not updated: %v", err)
		}
	}

	if len(errs) == 0 {
		if err := c.deps.Checkpoint.Delete(ctx); err != nil {
			c.logger.Warn("[checkpoint] Delete failed: %v", err)
		}
	} else {
		c.logger.Error("[store] Save failed, keeping the checkpoint for the next run")
		c.saveCheckpoint(ctx, state)
	}

	report := &models.RunReport{
		RunID:          state.RunID,
		StopReason:     budget.Reason(),
		ElapsedMinutes: budget.ElapsedMinutes(),
		PagesVisited:   c.pagesVisited,
		NewURLs:        c.newURLs,
	}
	c.insights.Generate(report, run, master)

	c.deps.Metrics.ObserveRun(budget.Elapsed())
	c.deps.Metrics.MasterRecords.Set(float64(len(master)))

	c.logger.Info("[run] Saved %d run records, master now %d (%s)", len(run), len(master), report.StopReason)
	return report, errors.Join(errs...)
}

type stopFunc func() bool

func (f stopFunc) ShouldStop() bool { return f() }
