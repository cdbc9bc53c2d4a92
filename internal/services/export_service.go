package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	exportPageSize   = 100
	exportTimeFormat = "2006-01-02 15:04:05"

	assessmentsSheet  = "Assessments"
	transactionsSheet = "Transactions"
)

type exportService struct {
	repo   repositories.Repository
	roles  RoleService
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, roles RoleService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		roles:  roles,
		logger: logger,
	}
}

// ExportAssessments writes every assessment and transaction into an xlsx workbook
func (s *exportService) ExportAssessments(ctx context.Context, adminID string) (*bytes.Buffer, error) {
	if !s.roles.IsAdmin(ctx, adminID) {
		return nil, NewPermissionError(adminID, "", "assessment", "export", "admin only")
	}

	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1, reuse it as the first sheet
	if err := f.SetSheetName("Sheet1", assessmentsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if _, err := f.NewSheet(transactionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	assessmentRows, err := s.writeAssessments(ctx, f)
	if err != nil {
		return nil, err
	}
	transactionRows, err := s.writeTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Assessment export generated",
		"admin_id", adminID,
		"assessments", assessmentRows,
		"transactions", transactionRows,
		"bytes", buf.Len())
	return buf, nil
}

func (s *exportService) writeAssessments(ctx context.Context, f *excelize.File) (int, error) {
	headers := []interface{}{
		"Assessment ID", "User ID", "Skill", "Status", "Score", "Passed", "Certified",
		"Pin Code", "School", "Payment ID", "Payment Request ID",
		"Submitted At", "Approved By", "Approved At", "Rejection Reason", "Created At",
	}
	if err := setRow(f, assessmentsSheet, 1, headers); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += exportPageSize {
		assessments, total, err := s.repo.Assessment().List(ctx, repositories.AssessmentFilters{
			Limit:     exportPageSize,
			Offset:    offset,
			SortBy:    "created_at",
			SortOrder: "asc",
		})
		if err != nil {
			return written, fmt.Errorf("failed to list assessments: %w", err)
		}

		for _, a := range assessments {
			row := []interface{}{
				a.ID, a.UserID, a.Skill, string(a.Status),
				intOrBlank(a.Score), passLabel(a.Passed), a.IsCertified(),
				a.PinCode, a.SchoolName, stringOrBlank(a.PaymentID), stringOrBlank(a.PaymentRequestID),
				timeOrBlank(a.SubmittedAt), stringOrBlank(a.ApprovedBy), timeOrBlank(a.ApprovedAt),
				stringOrBlank(a.RejectionReason), a.CreatedAt.Format(exportTimeFormat),
			}
			if err := setRow(f, assessmentsSheet, written+2, row); err != nil {
				return written, err
			}
			written++
		}

		if len(assessments) == 0 || int64(offset+exportPageSize) >= total {
			return written, nil
		}
	}
}

func (s *exportService) writeTransactions(ctx context.Context, f *excelize.File) (int, error) {
	headers := []interface{}{
		"Transaction ID", "User ID", "Amount", "Status", "Payment ID", "Payment Request ID", "Source", "Created At",
	}
	if err := setRow(f, transactionsSheet, 1, headers); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += exportPageSize {
		transactions, total, err := s.repo.Transaction().List(ctx, exportPageSize, offset)
		if err != nil {
			return written, fmt.Errorf("failed to list transactions: %w", err)
		}

		for _, t := range transactions {
			amount, _ := t.Amount.Float64()
			row := []interface{}{
				t.ID, t.UserID, amount, string(t.Status), t.PaymentID, t.PaymentRequestID, t.Source,
				t.CreatedAt.Format(exportTimeFormat),
			}
			if err := setRow(f, transactionsSheet, written+2, row); err != nil {
				return written, err
			}
			written++
		}

		if len(transactions) == 0 || int64(offset+exportPageSize) >= total {
			return written, nil
		}
	}
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func stringOrBlank(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrBlank(i *int) interface{} {
	if i == nil {
		return ""
	}
	return *i
}

func timeOrBlank(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportTimeFormat)
}

func passLabel(passed *bool) string {
	switch {
	case passed == nil:
		return ""
	case *passed:
		return "Pass"
	default:
		return "Fail"
	}
}
