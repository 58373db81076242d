package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"document-routing-server/internal/model"
	"document-routing-server/internal/ports"
	"github.com/jmoiron/sqlx"
)

// FormatOrderNumber собирает номер вида OIT-091525-007:
// код отдела, дата MMDDYY, порядковый суффикс с ведущими нулями.
// При suffix >= 1000 номер просто удлиняется, формат это допускает.
func FormatOrderNumber(departmentCode string, day time.Time, suffix int) string {
	return fmt.Sprintf("%s-%s-%03d", departmentCode, day.Format("010206"), suffix)
}

// BarcodeFromOrderNumber : штрих-код печатается без разделителей
func BarcodeFromOrderNumber(orderNumber string) string {
	return strings.ReplaceAll(orderNumber, "-", "")
}

// OrderNumberAllocator выдает следующий свободный номер в рамках
// отдел+день. Для президентских отделов счетчики раздельные по типу
// документа, у остальных общий на все типы.
type OrderNumberAllocator struct {
	documentRepository ports.DocumentRepository
}

func NewOrderNumberAllocator(documentRepository ports.DocumentRepository) *OrderNumberAllocator {
	return &OrderNumberAllocator{documentRepository}
}

// Next возвращает кандидата. Гарантию уникальности дает только уникальный
// индекс по order_number, вызывающий обязан обработать конфликт вставки.
func (a *OrderNumberAllocator) Next(ctx context.Context, exec sqlx.ExtContext, department *model.Department, documentType model.DocumentType, day time.Time) (string, error) {
	maxSuffix, err := a.documentRepository.MaxOrderSuffix(ctx, exec, department.ID, documentType, day, department.IsPresidential)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(department.Code, day, maxSuffix+1), nil
}
