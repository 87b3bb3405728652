package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"gorm.io/gorm"
)

const attachmentsCountSelect = `(SELECT COUNT(*) FROM case_attachments a
	WHERE a.case_id = repair_cases.id AND a.org_id = repair_cases.org_id) AS attachments_count`

type repo struct{}

func New() domain.Repository {
	return &repo{}
}

func scoped(ctx context.Context, db *gorm.DB, orgID snowflake.ID) *gorm.DB {
	return db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("repair_cases.org_id = ? AND repair_cases.deleted_at IS NULL", orgID)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Case) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string) (*domain.Case, error) {
	var c domain.Case
	err := scoped(ctx, db, orgID).
		Where("repair_cases.id = ?", id).
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, q domain.ListQuery) ([]domain.CaseRow, error) {
	stmt := scoped(ctx, db, orgID).Select("repair_cases.*, " + attachmentsCountSelect)

	if q.Status != nil {
		stmt = stmt.Where("repair_cases.status = ?", *q.Status)
	}
	if term := strings.TrimSpace(q.Query); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		match := likeClause(db)
		group := db.Session(&gorm.Session{NewDB: true}).
			Where(fmt.Sprintf(match, "repair_cases.customer_name"), like).
			Or(fmt.Sprintf(match, "repair_cases.customer_contact"), like).
			Or(fmt.Sprintf(match, "repair_cases.model_number"), like).
			Or(fmt.Sprintf(match, "repair_cases.symptom"), like).
			Or("repair_cases.id = ?", term)
		stmt = stmt.Where(group)
	}
	if q.From != nil {
		stmt = stmt.Where("repair_cases.received_at >= ?", *q.From)
	}
	if q.To != nil {
		stmt = stmt.Where("repair_cases.received_at <= ?", *q.To)
	}

	if q.Sort == domain.SortAsc {
		stmt = stmt.Order("repair_cases.received_at asc").Order("repair_cases.id asc")
	} else {
		stmt = stmt.Order("repair_cases.received_at desc").Order("repair_cases.id desc")
	}

	rows := []domain.CaseRow{}
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, c *domain.Case) error {
	return db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("org_id = ? AND id = ? AND deleted_at IS NULL", c.OrgID, c.ID).
		Select("*").
		Omit("id", "org_id", "created_at", "deleted_at").
		Updates(c).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("org_id = ? AND id = ? AND deleted_at IS NULL", orgID, id).
		Updates(map[string]any{"deleted_at": at, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UserInOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, userID snowflake.ID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Table("users").
		Where("id = ? AND org_id = ?", userID, orgID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, h *domain.StatusHistory) error {
	return db.WithContext(ctx).Create(h).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string) ([]domain.StatusHistory, error) {
	items := []domain.StatusHistory{}
	err := db.WithContext(ctx).
		Where("org_id = ? AND case_id = ?", orgID, caseID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindHistory(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string, id snowflake.ID) (*domain.StatusHistory, error) {
	var h domain.StatusHistory
	err := db.WithContext(ctx).
		Where("org_id = ? AND case_id = ? AND id = ?", orgID, caseID, id).
		Take(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *repo) UpdateHistoryStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).
		Model(&domain.StatusHistory{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Update("status", status).Error
}

func (r *repo) DeleteHistory(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.StatusHistory{}).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// likeClause returns a case-insensitive LIKE template for one column. MySQL
// already treats backslash as the LIKE escape and would parse '\' as an
// unterminated literal, so the ESCAPE clause is left out there.
func likeClause(db *gorm.DB) string {
	if db.Dialector != nil && db.Dialector.Name() == "mysql" {
		return "LOWER(%s) LIKE ?"
	}
	return `LOWER(%s) LIKE ? ESCAPE '\'`
}
