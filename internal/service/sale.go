package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"mintgate-api/internal/events"
	"mintgate-api/internal/merkle"
	"mintgate-api/internal/model"
	"mintgate-api/internal/payment"
	"mintgate-api/internal/repository"
	"mintgate-api/internal/sale"
	"mintgate-api/pkg/uid"
)

// AssetAllocator is the external asset collaborator as seen by the service
// layer; *asset.Store satisfies it.
type AssetAllocator interface {
	Allocate(ctx context.Context, recipient string, id uint64) error
	Release(ctx context.Context, recipient string, id uint64) error
}

// SaleService owns the drop engine. One mutex serializes every operation,
// mutating or active-window-dependent, matching the engine's sequential
// execution model. Persistence is write-through: the engine commits first,
// then the store is updated; a store failure is logged but does not unwind
// the engine, which stays authoritative.
type SaleService struct {
	mu       sync.Mutex
	engine   *sale.Engine
	store    repository.DropStore // optional
	assets   AssetAllocator
	payments payment.Channel
	events   *events.Publisher // nil-safe
}

// NewSaleService creates the sale service. Engine, assets and payments are
// required; store and events may be nil.
func NewSaleService(
	engine *sale.Engine,
	store repository.DropStore,
	assets AssetAllocator,
	payments payment.Channel,
	publisher *events.Publisher,
) *SaleService {
	if engine == nil || assets == nil || payments == nil {
		return nil
	}
	return &SaleService{
		engine:   engine,
		store:    store,
		assets:   assets,
		payments: payments,
		events:   publisher,
	}
}

// BuildEngine constructs the engine, replaying the store when one is given.
func BuildEngine(ctx context.Context, store repository.DropStore, clock func() uint64) (*sale.Engine, error) {
	engine := sale.NewEngine(clock, merkle.Verify, merkle.LeafDigest)
	if store == nil {
		return engine, nil
	}
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load drop state: %w", err)
	}
	restored, err := toEngineSnapshot(snap)
	if err != nil {
		return nil, err
	}
	if err := engine.Restore(restored); err != nil {
		return nil, fmt.Errorf("failed to restore drop state: %w", err)
	}
	if n := len(snap.Windows); n > 0 || len(snap.Types) > 0 {
		log.Printf("[SaleService] Restored %d windows, %d types", n, len(snap.Types))
	}
	return engine, nil
}

// WindowParams carries an insert or edit request. PrevHint/NextHint are
// optional positional hints for insertion (0 for none).
type WindowParams struct {
	ID       uint64
	Root     string
	Public   bool
	Start    uint64
	Limits   []uint64
	PrevHint uint64
	NextHint uint64
}

func (p WindowParams) root() (sale.Root, error) {
	if p.Public {
		if p.Root != "" {
			return sale.Root{}, sale.ErrInvalidInput
		}
		return sale.Root{}, nil
	}
	if p.Root == "" {
		return sale.Root{}, sale.ErrEmptyMembershipRoot
	}
	d, err := merkle.ParseDigest(p.Root)
	if err != nil {
		return sale.Root{}, sale.ErrInvalidInput
	}
	return sale.Root(d), nil
}

// AppendTypes appends catalog entries and persists them.
func (s *SaleService) AppendTypes(ctx context.Context, quantities, prices []uint64) ([]model.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.engine.CatalogSize()
	if err := s.engine.AppendTypes(quantities, prices); err != nil {
		return nil, err
	}
	entries := s.catalogEntries()
	if s.store != nil {
		for _, e := range entries[before:] {
			if err := s.store.SaveType(ctx, e); err != nil {
				log.Printf("[SaleService] Warning: persisting type %d failed: %v", e.Index, err)
			}
		}
		s.persistMeta(ctx)
	}
	return entries[before:], nil
}

// Catalog returns all catalog entries.
func (s *SaleService) Catalog(ctx context.Context) []model.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogEntries()
}

func (s *SaleService) catalogEntries() []model.CatalogEntry {
	types := s.engine.Catalog()
	entries := make([]model.CatalogEntry, len(types))
	for i, t := range types {
		entries[i] = model.CatalogEntry{Index: i, Remaining: t.Remaining, Price: t.Price, NextID: t.NextID}
	}
	return entries
}

// InsertWindow validates and inserts a sale window.
func (s *SaleService) InsertWindow(ctx context.Context, p WindowParams) (model.WindowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := p.root()
	if err != nil {
		return model.WindowRecord{}, err
	}
	if err := s.engine.InsertWindow(p.ID, root, p.Start, p.Limits, p.Public, p.PrevHint, p.NextHint); err != nil {
		return model.WindowRecord{}, err
	}
	rec := s.mustRecord(p.ID)
	if s.store != nil {
		if err := s.store.SaveWindow(ctx, rec); err != nil {
			log.Printf("[SaleService] Warning: persisting window %d failed: %v", p.ID, err)
		}
		s.persistMeta(ctx)
	}
	s.events.WindowAdded(ctx, rec)
	return rec, nil
}

// EditWindow replaces a not-yet-started window's fields, possibly moving it.
func (s *SaleService) EditWindow(ctx context.Context, p WindowParams) (model.WindowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := p.root()
	if err != nil {
		return model.WindowRecord{}, err
	}
	if err := s.engine.EditWindow(p.ID, root, p.Start, p.Limits, p.Public); err != nil {
		return model.WindowRecord{}, err
	}
	rec := s.mustRecord(p.ID)
	if s.store != nil {
		if err := s.store.SaveWindow(ctx, rec); err != nil {
			log.Printf("[SaleService] Warning: persisting window %d failed: %v", p.ID, err)
		}
		s.persistMeta(ctx)
	}
	s.events.WindowEdited(ctx, rec)
	return rec, nil
}

// RemoveWindow deletes a not-yet-started window.
func (s *SaleService) RemoveWindow(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.RemoveWindow(id); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.DeleteWindow(ctx, id); err != nil {
			log.Printf("[SaleService] Warning: deleting window %d failed: %v", id, err)
		}
		s.persistMeta(ctx)
	}
	s.events.WindowRemoved(ctx, id)
	return nil
}

// Window returns one window record with its current state.
func (s *SaleService) Window(ctx context.Context, id uint64) (model.WindowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.engine.Window(id)
	if err != nil {
		return model.WindowRecord{}, err
	}
	return s.toRecord(w), nil
}

// Windows returns all windows in chain order, head to tail.
func (s *SaleService) Windows(ctx context.Context) []model.WindowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	windows := s.engine.Windows()
	out := make([]model.WindowRecord, len(windows))
	for i, w := range windows {
		out[i] = s.toRecord(w)
	}
	return out
}

// ActiveWindow refreshes the cursor and returns the active window, if any.
func (s *SaleService) ActiveWindow(ctx context.Context) (model.WindowRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.engine.ActiveWindow()
	if !ok {
		return model.WindowRecord{}, false
	}
	if s.store != nil {
		s.persistMeta(ctx)
	}
	return s.toRecord(w), true
}

// MintedCounts returns per-type minted counts for (window, recipient).
func (s *SaleService) MintedCounts(ctx context.Context, windowID uint64, recipient string) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.MintedCounts(windowID, recipient)
}

// Mint executes one mint attempt end to end: engine validation and commit,
// asset allocation, excess refund, then write-through persistence and the
// completion event.
func (s *SaleService) Mint(ctx context.Context, req model.MintRequest) (model.MintReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proof, err := merkle.ParseProof(req.Proof)
	if err != nil {
		return model.MintReceipt{}, sale.ErrInvalidInput
	}

	result, err := s.engine.Mint(sale.MintRequest{
		Recipient: req.Recipient,
		Quantity:  req.Quantity,
		TypeIndex: req.TypeIndex,
		Payment:   req.Payment,
		Proof:     proof,
	}, ctxAllocator{ctx, s.assets}, ctxRefunder{ctx, s.payments})
	if err != nil {
		return model.MintReceipt{}, err
	}

	receipt := model.MintReceipt{
		RequestID: uid.New(),
		WindowID:  result.WindowID,
		Recipient: req.Recipient,
		TypeIndex: req.TypeIndex,
		Quantity:  req.Quantity,
		FirstID:   result.FirstID,
		LastID:    result.LastID,
		Paid:      result.Paid,
		Refunded:  result.Refunded,
		MintedAt:  time.Now().UTC(),
	}

	if s.store != nil {
		s.persistMint(ctx, receipt)
	}
	s.events.MintCompleted(ctx, receipt)

	log.Printf("[SaleService] Minted %d of type %d for %s (ids %d-%d, window %d)",
		req.Quantity, req.TypeIndex, req.Recipient, result.FirstID, result.LastID, result.WindowID)
	return receipt, nil
}

func (s *SaleService) persistMint(ctx context.Context, r model.MintReceipt) {
	counts, err := s.engine.MintedCounts(r.WindowID, r.Recipient)
	if err == nil && r.TypeIndex < len(counts) {
		entry := model.LedgerEntry{
			WindowID:  r.WindowID,
			Recipient: r.Recipient,
			TypeIndex: r.TypeIndex,
			Minted:    counts[r.TypeIndex],
		}
		if err := s.store.SaveLedger(ctx, entry); err != nil {
			log.Printf("[SaleService] Warning: persisting ledger failed: %v", err)
		}
	}
	entries := s.catalogEntries()
	if r.TypeIndex < len(entries) {
		if err := s.store.SaveType(ctx, entries[r.TypeIndex]); err != nil {
			log.Printf("[SaleService] Warning: persisting type failed: %v", err)
		}
	}
	if err := s.store.AppendMint(ctx, r); err != nil {
		log.Printf("[SaleService] Warning: appending mint journal failed: %v", err)
	}
	s.persistMeta(ctx)
}

func (s *SaleService) persistMeta(ctx context.Context) {
	if err := s.store.SaveMeta(ctx, repository.MetaActiveWindow, s.engine.ActiveWindowID()); err != nil {
		log.Printf("[SaleService] Warning: persisting meta failed: %v", err)
	}
	if err := s.store.SaveMeta(ctx, repository.MetaIDCeiling, s.engine.IDCeiling()); err != nil {
		log.Printf("[SaleService] Warning: persisting meta failed: %v", err)
	}
}

func (s *SaleService) toRecord(w sale.Window) model.WindowRecord {
	rec := model.WindowRecord{
		ID:     w.ID,
		Public: w.Root.IsZero(),
		Start:  w.Start,
		Limits: w.Limits,
		Prev:   w.Prev,
		Next:   w.Next,
	}
	if !w.Root.IsZero() {
		rec.Root = hex.EncodeToString(w.Root[:])
	}
	if state, err := s.engine.StateOf(w.ID); err == nil {
		rec.State = state.String()
	}
	return rec
}

func (s *SaleService) mustRecord(id uint64) model.WindowRecord {
	w, err := s.engine.Window(id)
	if err != nil {
		// the engine reported success for this id moments ago
		panic(fmt.Sprintf("window %d vanished after mutation: %v", id, err))
	}
	return s.toRecord(w)
}

func toEngineSnapshot(snap *model.Snapshot) (sale.Snapshot, error) {
	out := sale.Snapshot{
		IDCeiling:    snap.IDCeiling,
		ActiveWindow: snap.ActiveWindow,
	}
	for _, t := range snap.Types {
		out.Types = append(out.Types, sale.ItemType{Remaining: t.Remaining, Price: t.Price, NextID: t.NextID})
	}
	for _, w := range snap.Windows {
		var root sale.Root
		if !w.Public && w.Root != "" {
			d, err := merkle.ParseDigest(w.Root)
			if err != nil {
				return sale.Snapshot{}, fmt.Errorf("window %d: %w", w.ID, err)
			}
			root = sale.Root(d)
		}
		out.Windows = append(out.Windows, sale.Window{
			ID:     w.ID,
			Root:   root,
			Start:  w.Start,
			Limits: append([]uint64(nil), w.Limits...),
		})
	}
	for _, e := range snap.Ledger {
		out.Ledger = append(out.Ledger, sale.LedgerEntry{
			WindowID:  e.WindowID,
			Recipient: e.Recipient,
			TypeIndex: e.TypeIndex,
			Minted:    e.Minted,
		})
	}
	return out, nil
}

// ctxAllocator binds the request context to the asset collaborator for the
// duration of one mint.
type ctxAllocator struct {
	ctx    context.Context
	assets AssetAllocator
}

func (a ctxAllocator) Allocate(recipient string, id uint64) error {
	return a.assets.Allocate(a.ctx, recipient, id)
}

func (a ctxAllocator) Release(recipient string, id uint64) error {
	return a.assets.Release(a.ctx, recipient, id)
}

// ctxRefunder binds the request context to the payment channel.
type ctxRefunder struct {
	ctx      context.Context
	payments payment.Channel
}

func (r ctxRefunder) Refund(payer string, amount uint64) error {
	return r.payments.Refund(r.ctx, payer, amount)
}
