package ports

import (
	"context"

	"document-routing-server/internal/model"
)

// DepartmentDirectory — справочник отделов; CRUD живет во внешнем приложении,
// ядру нужны только проверка существования и карточка отдела
type DepartmentDirectory interface {
	Exists(ctx context.Context, departmentID string) (bool, error)
	Get(ctx context.Context, departmentID string) (*model.Department, error)
}
