package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/backend-go/internal/export"
	"github.com/andresuchdata/replenish/backend-go/internal/storage"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

const publishPrefix = "proposals"

// Workbook is a rendered xlsx file.
type Workbook struct {
	Filename string
	Data     []byte
}

type ExportService struct {
	proposals *ProposalService
	archive   *ArchiveService
	store     storage.ObjectStorage
	now       func() time.Time
}

// NewExportService accepts a nil store; publishing then fails with DEPENDENCY_ERROR.
func NewExportService(proposals *ProposalService, archive *ArchiveService, store storage.ObjectStorage) *ExportService {
	return &ExportService{proposals: proposals, archive: archive, store: store, now: time.Now}
}

// DraftWorkbook renders the session draft.
func (s *ExportService) DraftWorkbook(ctx context.Context, session string) (Workbook, error) {
	lines := s.proposals.Lines(session)
	if len(lines) == 0 {
		return Workbook{}, pkgerrors.New(pkgerrors.CodeInvalidState, "the proposal is empty")
	}

	data, err := export.Build(export.RowsFromLines(lines))
	if err != nil {
		return Workbook{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to build workbook")
	}
	return Workbook{
		Filename: fmt.Sprintf("proposal-%s.xlsx", s.now().UTC().Format("20060102-150405")),
		Data:     data,
	}, nil
}

// ArchiveWorkbook renders an archived proposal.
func (s *ExportService) ArchiveWorkbook(ctx context.Context, id string) (Workbook, error) {
	p, err := s.archive.Get(ctx, id)
	if err != nil {
		return Workbook{}, err
	}

	data, err := export.Build(export.RowsFromArchive(p))
	if err != nil {
		return Workbook{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to build workbook")
	}
	return Workbook{
		Filename: fmt.Sprintf("proposal-%s-%s.xlsx", p.ProposalDate.UTC().Format("20060102"), shortID(p.ID)),
		Data:     data,
	}, nil
}

// PublishDraft uploads the draft workbook under proposals/<date>/.
func (s *ExportService) PublishDraft(ctx context.Context, session string) (storage.ObjectInfo, error) {
	if s.store == nil {
		return storage.ObjectInfo{}, pkgerrors.New(pkgerrors.CodeDependency, "object storage is not configured")
	}

	wb, err := s.DraftWorkbook(ctx, session)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	key := publishDir(s.now()) + wb.Filename
	info, err := s.store.UploadObject(ctx, key, wb.Data, export.ContentType)
	if err != nil {
		return storage.ObjectInfo{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to publish workbook")
	}

	log.Info().Str("key", info.Key).Int64("size", info.Size).Msg("proposal workbook published")
	return info, nil
}

// ListPublished returns the workbooks published on day, ordered by key.
func (s *ExportService) ListPublished(ctx context.Context, day time.Time) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "object storage is not configured")
	}

	objects, err := s.store.ListObjects(ctx, publishDir(day))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list published workbooks")
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func publishDir(day time.Time) string {
	return fmt.Sprintf("%s/%s/", publishPrefix, day.UTC().Format(time.DateOnly))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
