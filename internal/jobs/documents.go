package jobs

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/documents"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/schedule"
	"github.com/andresuchdata/replenish/internal/storage"
)

// DocumentsJob renders the day's picking list and PO draft and uploads them.
type DocumentsJob struct {
	repo  repository.Repository
	calc  *schedule.Calculator
	store storage.ObjectStorage
}

func NewDocumentsJob(repo repository.Repository, calc *schedule.Calculator, store storage.ObjectStorage) *DocumentsJob {
	return &DocumentsJob{repo: repo, calc: calc, store: store}
}

func (j *DocumentsJob) Name() domain.JobName { return domain.JobGenerateDocuments }

func (j *DocumentsJob) Repeatable() bool { return false }

func (j *DocumentsJob) TriggerTime(region domain.Region) string { return region.DocsTime }

func (j *DocumentsJob) Run(ctx context.Context, rc RunContext) (string, error) {
	from, to, err := j.calc.DayBounds(rc.Date, rc.Region.Timezone)
	if err != nil {
		return "", err
	}
	orders, err := j.repo.ListOrders(ctx, rc.Region.ID, from, to)
	if err != nil {
		return "", fmt.Errorf("list orders: %w", err)
	}

	lines := documents.AggregatePickingList(orders)
	csvData, err := documents.PickingListCSV(rc.Region.Name, rc.Date, len(orders), lines)
	if err != nil {
		return "", fmt.Errorf("render picking list: %w", err)
	}
	name := documents.FileName("picking-list", rc.Region.Name, rc.Date, "csv")
	if err := j.publish(ctx, rc, domain.DocPickingList, name, documents.ContentTypeCSV, csvData); err != nil {
		return "", err
	}
	generated := 1

	recs, err := j.repo.ListRecommendations(ctx, rc.Region.ID, rc.Date)
	if err != nil {
		return "", fmt.Errorf("list recommendations: %w", err)
	}
	if len(recs) == 0 {
		log.Info().Int64("region_id", rc.Region.ID).Str("date", rc.Date.String()).
			Msg("no recommendations, PO draft skipped")
	} else {
		xlsxData, err := documents.PODraftXLSX(rc.Region.Name, rc.Date, recs)
		if err != nil {
			return "", fmt.Errorf("render po draft: %w", err)
		}
		name := documents.FileName("po-draft", rc.Region.Name, rc.Date, "xlsx")
		if err := j.publish(ctx, rc, domain.DocPODraft, name, documents.ContentTypeXLSX, xlsxData); err != nil {
			return "", err
		}
		generated++
	}

	return fmt.Sprintf("%d documents, %d orders, %d picking lines, %d recommendations",
		generated, len(orders), len(lines), len(recs)), nil
}

// publish uploads data and records the document metadata.
func (j *DocumentsJob) publish(ctx context.Context, rc RunContext, typ domain.DocumentType, fileName, contentType string, data []byte) error {
	key := path.Join(strconv.FormatInt(rc.Region.ID, 10), rc.Date.String(), uuid.NewString()+"-"+fileName)
	url, err := j.store.UploadObject(ctx, key, contentType, data)
	if err != nil {
		return fmt.Errorf("upload %s: %w", fileName, err)
	}

	doc := &domain.Document{
		RegionID:    rc.Region.ID,
		Type:        typ,
		Date:        rc.Date,
		FileName:    fileName,
		URL:         url,
		GeneratedAt: j.calc.Now().UTC(),
	}
	if err := j.repo.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document %s: %w", fileName, err)
	}
	log.Info().Int64("region_id", rc.Region.ID).Str("document", string(typ)).Str("url", url).Msg("document generated")
	return nil
}
