// Package test provides the integration harness for the workflow client.
//
// It contains an in-memory buckets backend that implements the client
// contract, so the full work lifecycle, including the at-most-one-claimant
// guarantee of withdraw, can be exercised without a production backend.
package test

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bucketsio/workflow/pkg/api/v1/client"
	"github.com/bucketsio/workflow/pkg/api/v1/routes"
	"github.com/bucketsio/workflow/pkg/work"
)

// WorkRecord is the backend's stored representation of a work item. The
// indexed columns mirror the withdraw filters; Document holds the full work
// item JSON.
type WorkRecord struct {
	ID       string `gorm:"primaryKey"`
	Pipeline string `gorm:"index"`
	Site     string `gorm:"index"`
	User     string `gorm:"index"`
	Status   string `gorm:"index"`
	Priority int    `gorm:"index"`
	Attempt  int
	Retries  int
	Creation float64
	Document string
}

// Backend is an in-memory buckets backend backed by a sqlite store
type Backend struct {
	db *gorm.DB
}

// NewBackend opens the sqlite store at dbPath and migrates the schema
func NewBackend(dbPath string) (*Backend, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open backend store: %w", err)
	}

	// One connection serializes sqlite writes so concurrent claims contend
	// on the status compare-and-swap instead of on SQLITE_BUSY errors
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&WorkRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate backend store: %w", err)
	}

	return &Backend{db: db}, nil
}

// App builds the fiber application exposing the backend routes
func (b *Backend) App() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Get(routes.HealthPath, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	app.Post(routes.WithdrawPath, b.handleWithdraw)
	app.Post(routes.WorkPath, b.handleDeposit)
	app.Put(routes.WorkPath+"/:id", b.handleUpdate)
	app.Delete(routes.WorkPath+"/:id", b.handleDelete)

	return app
}

func (b *Backend) handleDeposit(c *fiber.Ctx) error {
	var item work.Work
	if err := json.Unmarshal(c.Body(), &item); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid work document")
	}
	if item.Pipeline == "" {
		return fiber.NewError(fiber.StatusBadRequest, "pipeline is required")
	}

	// The backend owns id assignment and the created -> queued transition.
	// Duplicate deposits are not deduplicated; each call creates a record.
	item.ID = uuid.NewString()
	item.Status = work.StatusQueued

	record, err := recordFromWork(&item)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := b.db.Create(record).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	if c.Query("return_ids") == "true" {
		return c.Status(fiber.StatusCreated).JSON(client.DepositResponse{IDs: []string{item.ID}})
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (b *Backend) handleWithdraw(c *fiber.Ctx) error {
	var params client.WithdrawParams
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid withdraw filters")
	}
	if params.Pipeline == "" {
		return fiber.NewError(fiber.StatusBadRequest, "pipeline is required")
	}

	claimed, err := b.claim(params)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if claimed == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(claimed)
}

// claim atomically takes ownership of one queued record matching the
// filters. The status flip is a compare-and-swap scoped per record: the
// UPDATE only succeeds while the record is still queued, so two concurrent
// claims can never both win the same record.
func (b *Backend) claim(params client.WithdrawParams) (*work.Work, error) {
	query := b.db.Where("status = ? AND pipeline = ?", work.StatusQueued.String(), params.Pipeline)
	if params.Site != "" {
		query = query.Where("site = ?", params.Site)
	}
	if params.User != "" {
		query = query.Where("user = ?", params.User)
	}
	if params.Priority != 0 {
		query = query.Where("priority = ?", params.Priority)
	}

	var candidates []WorkRecord
	if err := query.Order("priority DESC").Order("creation ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		item, err := workFromRecord(&candidate)
		if err != nil {
			return nil, err
		}
		if !matchesDocumentFilters(item, params) {
			continue
		}

		item.Status = work.StatusRunning
		item.Attempt++
		item.Start = float64(time.Now().UnixNano()) / float64(time.Second)
		item.Stop = 0

		record, err := recordFromWork(item)
		if err != nil {
			return nil, err
		}

		res := b.db.Model(&WorkRecord{}).
			Where("id = ? AND status = ?", candidate.ID, work.StatusQueued.String()).
			Updates(map[string]interface{}{
				"status":   record.Status,
				"attempt":  record.Attempt,
				"document": record.Document,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race for this record, try the next candidate
			continue
		}
		return item, nil
	}

	return nil, nil
}

func (b *Backend) handleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")

	var existing WorkRecord
	if err := b.db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no such work")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	var item work.Work
	if err := json.Unmarshal(c.Body(), &item); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid work document")
	}
	item.ID = id // the id is immutable once assigned

	// Re-queue a failed item while it has attempts left; past the retry
	// budget the failure is terminal.
	if item.Status == work.StatusFailure {
		retries := 0
		if item.Retries != nil {
			retries = *item.Retries
		}
		if item.Attempt <= retries {
			item.Status = work.StatusQueued
		}
	}

	record, err := recordFromWork(&item)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := b.db.Model(&WorkRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"pipeline": record.Pipeline,
		"site":     record.Site,
		"user":     record.User,
		"status":   record.Status,
		"priority": record.Priority,
		"attempt":  record.Attempt,
		"retries":  record.Retries,
		"creation": record.Creation,
		"document": record.Document,
	}).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}

func (b *Backend) handleDelete(c *fiber.Ctx) error {
	// Deleting an unknown id is success: delete is idempotent
	if err := b.db.Delete(&WorkRecord{}, "id = ?", c.Params("id")).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

// Record returns the stored record for id, for assertions in tests
func (b *Backend) Record(id string) (*WorkRecord, error) {
	var record WorkRecord
	if err := b.db.First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func recordFromWork(item *work.Work) (*WorkRecord, error) {
	document, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("error encoding work document: %w", err)
	}

	retries := 0
	if item.Retries != nil {
		retries = *item.Retries
	}

	return &WorkRecord{
		ID:       item.ID,
		Pipeline: item.Pipeline,
		Site:     item.Site,
		User:     item.User,
		Status:   item.Status.String(),
		Priority: item.Priority,
		Attempt:  item.Attempt,
		Retries:  retries,
		Creation: item.Creation,
		Document: string(document),
	}, nil
}

func workFromRecord(record *WorkRecord) (*work.Work, error) {
	var item work.Work
	if err := json.Unmarshal([]byte(record.Document), &item); err != nil {
		return nil, fmt.Errorf("error decoding work document: %w", err)
	}
	return &item, nil
}

// matchesDocumentFilters applies the filters that live in the work document
// rather than in indexed columns: tags must be a subset of the record's
// tags, event must match exactly, and parent only matches a record carrying
// that parent tag.
func matchesDocumentFilters(item *work.Work, params client.WithdrawParams) bool {
	for _, tag := range params.Tags {
		if !containsString(item.Tags, tag) {
			return false
		}
	}

	if len(params.Event) > 0 {
		if len(item.Event) != len(params.Event) {
			return false
		}
		for i, e := range params.Event {
			if item.Event[i] != e {
				return false
			}
		}
	}

	if params.Parent != "" && !containsString(item.Tags, "parent:"+params.Parent) {
		return false
	}

	return true
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
