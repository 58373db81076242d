package repository

import (
	"context"
	"database/sql"
	"errors"

	"document-routing-server/config"
	"document-routing-server/internal/apperrors"
	"document-routing-server/internal/model"
	"document-routing-server/internal/util"
)

// DepartmentRepository — read-only справочник отделов; заполняется внешним
// административным приложением
type DepartmentRepository struct {
	*config.Database
}

func NewDepartmentRepository(database *config.Database) *DepartmentRepository {
	return &DepartmentRepository{database}
}

func (r *DepartmentRepository) Exists(ctx context.Context, departmentID string) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1 AND is_active = TRUE)
	`, departmentID)
	if err != nil {
		return false, util.LogError("[DepartmentRepo] ошибка проверки отдела", err)
	}
	return exists, nil
}

func (r *DepartmentRepository) Get(ctx context.Context, departmentID string) (*model.Department, error) {
	query := `SELECT id, code, name, is_presidential, is_active FROM departments WHERE id = $1`

	var department model.Department
	err := r.DB.GetContext(ctx, &department, query, departmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[DepartmentRepo] не удалось получить отдел", err)
	}

	return &department, nil
}
