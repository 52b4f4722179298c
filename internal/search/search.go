// Package search implements the criteria-to-page translation the HTTP
// boundary's list endpoint uses, grounded on the teacher's QueryService
// (internal/service/query_service.go) but folding in the authorization
// policy's visibility filter before any query runs.
package search

import (
	"context"
	"strconv"
	"time"

	"github.com/mautops/expense-approval/internal/authz"
	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/shopspring/decimal"
)

// Criteria is the caller-supplied filter set, before visibility is folded
// in.
type Criteria struct {
	Status        *domain.Status
	Title         string
	AmountMin     *decimal.Decimal
	AmountMax     *decimal.Decimal
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	SortField     string
	SortOrder     string
}

// Page is one page of results plus the pagination metadata the HTTP
// boundary echoes back.
type Page struct {
	Items      []*domain.Expense
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
	PageWindow []int
}

// Service is the C8 SearchService.
type Service struct {
	store  *store.ExpenseStore
	policy authz.Policy
}

// New builds a Service backed by expenseStore.
func New(expenseStore *store.ExpenseStore, policy authz.Policy) *Service {
	return &Service{store: expenseStore, policy: policy}
}

// Search translates criteria into a store query, restricted to what actor
// may see, and returns one page of results.
func (s *Service) Search(ctx context.Context, actor domain.Actor, criteria Criteria, page, pageSize int) (Page, error) {
	visibility := s.policy.Visibility(actor)

	sc := store.SearchCriteria{
		Status:        criteria.Status,
		Title:         criteria.Title,
		AmountMin:     criteria.AmountMin,
		AmountMax:     criteria.AmountMax,
		SubmittedFrom: criteria.SubmittedFrom,
		SubmittedTo:   criteria.SubmittedTo,
		SortField:     criteria.SortField,
		SortOrder:     criteria.SortOrder,
	}
	if !visibility.Unrestricted {
		applicantID := visibility.ApplicantID
		sc.ApplicantID = &applicantID
	}

	result, err := s.store.Search(ctx, sc, page, pageSize)
	if err != nil {
		return Page{}, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	totalPages := int((result.Total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return Page{
		Items:      result.Items,
		Page:       page,
		PageSize:   pageSize,
		Total:      result.Total,
		TotalPages: totalPages,
		PageWindow: pageWindow(page, totalPages, 5),
	}, nil
}

// ExportCSV returns every expense matching criteria that actor may see, as
// CSV rows, for the export endpoint. Grounded on the original's
// CreateCsvService: it walks the full result set rather than one page,
// since an export is meant to be exhaustive.
func (s *Service) ExportCSV(ctx context.Context, actor domain.Actor, criteria Criteria) ([][]string, error) {
	visibility := s.policy.Visibility(actor)

	sc := store.SearchCriteria{
		Status:        criteria.Status,
		Title:         criteria.Title,
		AmountMin:     criteria.AmountMin,
		AmountMax:     criteria.AmountMax,
		SubmittedFrom: criteria.SubmittedFrom,
		SubmittedTo:   criteria.SubmittedTo,
		SortField:     criteria.SortField,
		SortOrder:     criteria.SortOrder,
	}
	if !visibility.Unrestricted {
		applicantID := visibility.ApplicantID
		sc.ApplicantID = &applicantID
	}

	var items []*domain.Expense
	for page := 1; ; page++ {
		result, err := s.store.Search(ctx, sc, page, maxExportRows)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if int64(page)*maxExportRows >= result.Total {
			break
		}
	}

	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{"id", "applicantId", "title", "amount", "currency", "status", "submittedAt", "createdAt", "updatedAt"})
	for _, e := range items {
		submittedAt := ""
		if e.SubmittedAt() != nil {
			submittedAt = e.SubmittedAt().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID(), 10), e.ApplicantID(), e.Title(), e.Amount().StringFixed(2), e.Currency(),
			string(e.Status()), submittedAt, e.CreatedAt().Format(time.RFC3339), e.UpdatedAt().Format(time.RFC3339),
		})
	}
	return rows, nil
}

// maxExportRows is how many rows ExportCSV reads from the store per query.
const maxExportRows = 10000

// pageWindow returns up to size contiguous page numbers centered on
// current, clipped to [1, totalPages].
func pageWindow(current, totalPages, size int) []int {
	if totalPages < 1 {
		totalPages = 1
	}
	half := size / 2
	start := current - half
	if start < 1 {
		start = 1
	}
	end := start + size - 1
	if end > totalPages {
		end = totalPages
		start = end - size + 1
		if start < 1 {
			start = 1
		}
	}

	window := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		window = append(window, p)
	}
	return window
}
