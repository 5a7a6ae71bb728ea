// backend-go/internal/service/proposal_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/proposal"
	"github.com/andresuchdata/replenish/backend-go/internal/repository"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
	"github.com/andresuchdata/replenish/backend-go/pkg/logger"
	"github.com/andresuchdata/replenish/backend-go/pkg/metrics"
)

// DefaultSession is used when the caller names no session.
const DefaultSession = "default"

// CatalogReader is the slice of the catalog a proposal is generated from.
type CatalogReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.FullItemData, []string, error)
	Recommended(ctx context.Context) ([]domain.FullItemData, error)
}

// ProposalService keeps one draft per operator session. A session whose draft
// becomes empty is forgotten, so the map only holds sessions with lines.
type ProposalService struct {
	mu       sync.Mutex
	sessions map[string]*proposal.Draft

	catalog CatalogReader
	archive repository.ArchiveRepository
	metrics *metrics.ReplenishmentMetrics
	now     func() time.Time
	log     zerolog.Logger
}

// Snapshot is the state of one session draft.
type Snapshot struct {
	Session   string
	State     domain.ProposalState
	Lines     []proposal.Line
	Suppliers []proposal.SupplierGroup
}

func NewProposalService(catalog CatalogReader, archive repository.ArchiveRepository, m *metrics.ReplenishmentMetrics) *ProposalService {
	return &ProposalService{
		sessions: make(map[string]*proposal.Draft),
		catalog:  catalog,
		archive:  archive,
		metrics:  m,
		now:      time.Now,
		log:      logger.Component("proposal"),
	}
}

func sessionName(session string) string {
	session = strings.TrimSpace(session)
	if session == "" {
		return DefaultSession
	}
	return session
}

// withDraft runs fn on the session draft under the service lock, creating the
// draft when create is set. The entry is dropped when fn leaves it empty.
func (s *ProposalService) withDraft(session string, create bool, fn func(d *proposal.Draft)) {
	session = sessionName(session)

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.sessions[session]
	if !ok {
		d = proposal.NewDraft()
		if create {
			s.sessions[session] = d
		}
	}
	fn(d)
	if d.Len() == 0 {
		delete(s.sessions, session)
	}
}

// View returns the session draft. Unknown sessions read as empty.
func (s *ProposalService) View(session string) Snapshot {
	snap := Snapshot{Session: sessionName(session)}
	s.withDraft(session, false, func(d *proposal.Draft) {
		snap.State = d.State()
		snap.Lines = d.Lines()
		snap.Suppliers = d.GroupBySupplier()
	})
	return snap
}

// Generate replaces the session draft with items.
func (s *ProposalService) Generate(session string, items []domain.FullItemData) []proposal.Line {
	var lines []proposal.Line
	s.withDraft(session, true, func(d *proposal.Draft) {
		d.Generate(items)
		lines = d.Lines()
	})
	return lines
}

// GenerateFromSelection resolves itemIDs through the catalog. With no ids the
// draft is built from every item that has a recommendation.
func (s *ProposalService) GenerateFromSelection(ctx context.Context, session string, itemIDs []string) ([]proposal.Line, error) {
	var (
		items []domain.FullItemData
		err   error
	)
	if len(itemIDs) == 0 {
		items, err = s.catalog.Recommended(ctx)
	} else {
		var missing []string
		items, missing, err = s.catalog.FindByIDs(ctx, itemIDs)
		if err == nil && len(missing) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "items not found").WithDetails(map[string]any{"item_ids": missing})
		}
	}
	if err != nil {
		return nil, err
	}
	return s.Generate(session, items), nil
}

// UpdateQty is a no-op when the item is not in the draft.
func (s *ProposalService) UpdateQty(session, itemID string, qty int) []proposal.Line {
	var lines []proposal.Line
	s.withDraft(session, false, func(d *proposal.Draft) {
		d.UpdateQty(itemID, qty)
		lines = d.Lines()
	})
	return lines
}

func (s *ProposalService) Remove(session, itemID string) ([]proposal.Line, error) {
	var (
		lines   []proposal.Line
		removed bool
	)
	s.withDraft(session, false, func(d *proposal.Draft) {
		removed = d.Remove(itemID)
		lines = d.Lines()
	})
	if !removed {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s is not in the proposal", itemID)
	}
	return lines, nil
}

func (s *ProposalService) Clear(session string) {
	s.withDraft(session, false, func(d *proposal.Draft) { d.Clear() })
}

func (s *ProposalService) Lines(session string) []proposal.Line {
	var lines []proposal.Line
	s.withDraft(session, false, func(d *proposal.Draft) { lines = d.Lines() })
	return lines
}

func (s *ProposalService) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Approve archives the draft grouped by supplier and clears it. A failed
// archive write leaves the draft as it was.
func (s *ProposalService) Approve(ctx context.Context, session, approver string) (domain.ArchivedProposal, error) {
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return domain.ArchivedProposal{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"approver": "is required"})
	}

	session = sessionName(session)
	s.mu.Lock()
	d, ok := s.sessions[session]
	s.mu.Unlock()
	if !ok {
		d = proposal.NewDraft()
	}

	var archived domain.ArchivedProposal
	err := d.Commit(func(lines []proposal.Line) error {
		archived = buildArchive(uuid.NewString(), s.now().UTC(), approver, lines)
		return s.archive.Append(ctx, archived)
	})
	if errors.Is(err, proposal.ErrEmptyDraft) {
		return domain.ArchivedProposal{}, pkgerrors.Wrap(pkgerrors.CodeInvalidState, err, "cannot approve an empty proposal")
	}
	if err != nil {
		return domain.ArchivedProposal{}, err
	}

	s.mu.Lock()
	if s.sessions[session] == d && d.Len() == 0 {
		delete(s.sessions, session)
	}
	s.mu.Unlock()

	s.metrics.ObserveApproval(archived.ItemsCount)
	s.log.Info().
		Str("proposal_id", archived.ID).
		Str("approver", approver).
		Int("items", archived.ItemsCount).
		Msg("proposal approved")

	return archived, nil
}

func buildArchive(id string, at time.Time, approver string, lines []proposal.Line) domain.ArchivedProposal {
	p := domain.ArchivedProposal{
		ID:           id,
		ProposalDate: at,
		CreatedBy:    approver,
		ItemsCount:   len(lines),
		Lines:        make([]domain.ArchivedProposalLine, 0, len(lines)),
	}
	for _, group := range proposal.GroupBySupplier(lines) {
		for _, l := range group.Lines {
			item := l.Item.Item
			p.Lines = append(p.Lines, domain.ArchivedProposalLine{
				ItemID:      l.ItemID,
				Code:        item.Code,
				Precodice:   item.Precodice,
				Description: item.Description,
				Supplier:    item.Supplier,
				OrderedQty:  l.ModifiedQty,
			})
		}
	}
	return p
}
