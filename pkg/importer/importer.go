// Package importer copies book metadata out of a Calibre catalog into the
// library database. Each book is committed in its own transaction, so a
// cancelled or failed run leaves behind only complete items.
package importer

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/toshokanbooks/toshokan/pkg/calibre"
	"github.com/toshokanbooks/toshokan/pkg/contenthash"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
	"github.com/toshokanbooks/toshokan/pkg/joblogs"
	"github.com/toshokanbooks/toshokan/pkg/mediaitems"
	"github.com/toshokanbooks/toshokan/pkg/models"
	"github.com/toshokanbooks/toshokan/pkg/people"
	"github.com/toshokanbooks/toshokan/pkg/sortname"
	"github.com/uptrace/bun"
)

// Options configures a single import run.
type Options struct {
	ForeignDBPath   string
	LibraryRootPath string
	LibraryID       int

	// Progress, if set, is called after each record is processed.
	Progress func(Progress)

	// JobLog, if set, receives per-record messages in addition to stdout.
	JobLog *joblogs.JobLogger
}

// Progress reports how far along a run is. Processed includes the record the
// event is for, so the final event of a full run has Processed == Total.
type Progress struct {
	Processed int
	Total     int
	Title     string
}

// Failure describes one record that could not be imported.
type Failure struct {
	ForeignID int    `json:"foreign_id"`
	Title     string `json:"title"`
	Reason    string `json:"reason"`
}

// Result summarizes a finished (or cancelled) run.
type Result struct {
	Total            int       `json:"total"`
	Imported         int       `json:"imported"`
	Updated          int       `json:"updated"`
	SkippedUnchanged int       `json:"skipped_unchanged"`
	SkippedFailed    int       `json:"skipped_failed"`
	Cancelled        bool      `json:"cancelled"`
	Failures         []Failure `json:"failures,omitempty"`
}

// Orchestrator drives import runs against one database.
type Orchestrator struct {
	db            *bun.DB
	reader        *calibre.Reader
	personService *people.Service
	itemService   *mediaitems.Service
}

func New(db *bun.DB) *Orchestrator {
	return &Orchestrator{
		db:            db,
		reader:        calibre.NewReader(),
		personService: people.NewService(db),
		itemService:   mediaitems.NewService(db),
	}
}

// Run executes one import. Cancellation via ctx is honored between records:
// the record currently being written always commits or rolls back as a whole.
// Run returns an error only when the database itself is unusable; per-record
// problems are reported in the Result instead.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	log := logger.FromContext(ctx)

	records := o.reader.ReadBooks(ctx, opts.ForeignDBPath)

	// Process records in foreign id order so runs are deterministic and
	// progress counts line up with the catalog.
	ids := make([]int, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := &Result{Total: len(records)}

	// Person lookups are cached for the whole run, keyed by lowercased sort
	// name, so repeated authors don't round-trip to the database.
	personCache := map[string]*models.Person{}

	for _, id := range ids {
		record := records[id]

		select {
		case <-ctx.Done():
			result.Cancelled = true
			log.Info("import cancelled", logger.Data{
				"imported": result.Imported,
				"updated":  result.Updated,
				"total":    result.Total,
			})
			return result, nil
		default:
		}

		// The in-flight record finishes even if cancel lands mid-write.
		// The next loop iteration picks the cancellation up.
		recordCtx := context.WithoutCancel(ctx)

		outcome, err := o.importRecord(recordCtx, record, opts, personCache)
		switch {
		case err != nil && isFatal(err):
			return nil, errors.Wrapf(err, "importing %q", record.Title)
		case err != nil:
			result.SkippedFailed++
			result.Failures = append(result.Failures, Failure{
				ForeignID: record.ID,
				Title:     record.Title,
				Reason:    err.Error(),
			})
			if opts.JobLog != nil {
				opts.JobLog.Warn("record skipped", logger.Data{"title": record.Title, "reason": err.Error()})
			} else {
				log.Warn("record skipped", logger.Data{"title": record.Title, "reason": err.Error()})
			}
		case outcome == outcomeImported:
			result.Imported++
		case outcome == outcomeUpdated:
			result.Updated++
		case outcome == outcomeUnchanged:
			result.SkippedUnchanged++
		}

		if opts.Progress != nil {
			opts.Progress(Progress{
				Processed: result.Imported + result.Updated + result.SkippedUnchanged + result.SkippedFailed,
				Total:     result.Total,
				Title:     record.Title,
			})
		}
	}

	log.Info("import finished", logger.Data{
		"total":             result.Total,
		"imported":          result.Imported,
		"updated":           result.Updated,
		"skipped_unchanged": result.SkippedUnchanged,
		"skipped_failed":    result.SkippedFailed,
	})

	return result, nil
}

type outcome int

const (
	outcomeImported outcome = iota
	outcomeUpdated
	outcomeUnchanged
)

func (o *Orchestrator) importRecord(ctx context.Context, record *calibre.BookRecord, opts Options, personCache map[string]*models.Person) (outcome, error) {
	// The first format file that exists on disk is the item's identity.
	relPath, absPath, err := firstUsableFormat(record, opts.LibraryRootPath)
	if err != nil {
		return 0, err
	}

	hash, err := contenthash.Hash(absPath)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	existing, err := o.itemService.RetrieveMediaItem(ctx, mediaitems.RetrieveMediaItemOptions{
		Filepath:  &relPath,
		LibraryID: &opts.LibraryID,
	})
	if err != nil && !errors.Is(err, errcodes.NotFound("Media item")) {
		return 0, err
	}

	if existing != nil && existing.ContentHash == hash {
		return outcomeUnchanged, nil
	}

	roles, err := o.resolvePersons(ctx, record.Authors, opts.LibraryID, personCache)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	common := &models.MetadataCommon{
		Title:           record.Title,
		SortTitle:       record.SortTitle,
		Summary:         record.Summary,
		Publisher:       record.Publisher,
		PublicationDate: record.PublicationDate,
		Rating:          record.Rating,
		Tags:            record.Tags,
		CoverPath:       record.CoverPath,
	}
	if common.SortTitle == "" {
		common.SortTitle = sortname.ForTitle(record.Title)
	}
	book := &models.MetadataBook{
		ISBN:        record.ISBN,
		SeriesName:  record.SeriesName,
		SeriesIndex: record.SeriesIndex,
	}

	if existing != nil {
		existing.ContentHash = hash
		existing.FilesizeBytes = info.Size()
		existing.LastScannedAt = now
		existing.Common = common
		existing.Book = book
		existing.People = roles

		err := o.itemService.UpdateMediaItem(ctx, existing, mediaitems.UpdateMediaItemOptions{
			Columns:        []string{"content_hash", "filesize_bytes", "last_scanned_at"},
			UpdateMetadata: true,
			UpdatePeople:   true,
		})
		if err != nil {
			return 0, err
		}
		return outcomeUpdated, nil
	}

	item := &models.MediaItem{
		LibraryID:     opts.LibraryID,
		Filepath:      relPath,
		MediaType:     detectMediaType(absPath),
		ContentHash:   hash,
		FilesizeBytes: info.Size(),
		LastScannedAt: now,
		Common:        common,
		Book:          book,
		People:        roles,
	}
	if err := o.itemService.CreateMediaItem(ctx, item); err != nil {
		return 0, err
	}
	return outcomeImported, nil
}

// resolvePersons maps the raw author names onto person rows, creating them as
// needed. Within one record, duplicate sort names collapse to one credit.
func (o *Orchestrator) resolvePersons(ctx context.Context, authors []string, libraryID int, cache map[string]*models.Person) ([]*models.MediaPersonRole, error) {
	roles := make([]*models.MediaPersonRole, 0, len(authors))
	seen := map[int]bool{}

	for _, raw := range authors {
		_, sortName := sortname.Normalize(raw)
		key := strings.ToLower(sortName)

		person, ok := cache[key]
		if !ok {
			var err error
			person, err = o.personService.FindOrCreatePerson(ctx, raw, libraryID)
			if err != nil {
				return nil, err
			}
			cache[key] = person
		}

		if seen[person.ID] {
			continue
		}
		seen[person.ID] = true

		roles = append(roles, &models.MediaPersonRole{
			PersonID:  person.ID,
			Role:      models.RoleAuthor,
			SortOrder: len(roles),
		})
	}

	if len(roles) == 0 {
		person, ok := cache[strings.ToLower(sortname.UnknownAuthor)]
		if !ok {
			var err error
			person, err = o.personService.FindOrCreatePerson(ctx, "", libraryID)
			if err != nil {
				return nil, err
			}
			cache[strings.ToLower(sortname.UnknownAuthor)] = person
		}
		roles = append(roles, &models.MediaPersonRole{
			PersonID: person.ID,
			Role:     models.RoleAuthor,
		})
	}

	return roles, nil
}

func firstUsableFormat(record *calibre.BookRecord, rootPath string) (string, string, error) {
	if len(record.FormatPaths) == 0 {
		return "", "", errors.Errorf("no format files listed for %q", record.Title)
	}

	for _, rel := range record.FormatPaths {
		abs := filepath.Join(rootPath, filepath.FromSlash(rel))
		if _, err := os.Stat(abs); err == nil {
			return rel, abs, nil
		}
	}

	return "", "", errors.Errorf("no format file found on disk for %q", record.Title)
}

// detectMediaType sniffs the file contents. Catalogs occasionally hold audio
// editions alongside ebooks; those are stored as audiobooks.
func detectMediaType(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return models.MediaTypeBook
	}
	if strings.HasPrefix(mtype.String(), "audio/") {
		return models.MediaTypeAudiobook
	}
	return models.MediaTypeBook
}

// isFatal reports whether the error means the database itself is gone, as
// opposed to one record failing.
func isFatal(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone)
}
