package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"document-routing-server/internal/apperrors"
	"document-routing-server/internal/model"
	"document-routing-server/internal/ports"
	"document-routing-server/internal/security"
	"document-routing-server/internal/util"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// maxOrderAttempts ограничивает гонку за номер приказа: каждая попытка
// берет следующий суффикс и полагается на уникальный индекс
const maxOrderAttempts = 10

const publicTokenLength = 32

type DocumentService struct {
	db                  sqlx.ExtContext
	documentRepository  ports.DocumentRepository
	recipientRepository ports.RecipientRepository
	fileRepository      ports.FileRepository
	directory           ports.DepartmentDirectory
	cacheRepository     ports.CacheRepository
	s3Storage           ports.S3Storage
	notifier            ports.Notifier
	audit               ports.AuditSink
	allocator           *OrderNumberAllocator
	ttl                 time.Duration
}

func NewDocumentService(
	db sqlx.ExtContext,
	documentRepository ports.DocumentRepository,
	recipientRepository ports.RecipientRepository,
	fileRepository ports.FileRepository,
	directory ports.DepartmentDirectory,
	cacheRepository ports.CacheRepository,
	s3Storage ports.S3Storage,
	notifier ports.Notifier,
	audit ports.AuditSink,
	ttl time.Duration,
) *DocumentService {
	return &DocumentService{
		db:                  db,
		documentRepository:  documentRepository,
		recipientRepository: recipientRepository,
		fileRepository:      fileRepository,
		directory:           directory,
		cacheRepository:     cacheRepository,
		s3Storage:           s3Storage,
		notifier:            notifier,
		audit:               audit,
		allocator:           NewOrderNumberAllocator(documentRepository),
		ttl:                 ttl,
	}
}

// CreateDocument регистрирует документ, выдает номер приказа и открывает
// маршрутную цепочку. Конфликт номера разрешается повторной попыткой с
// новым суффиксом, ручной номер не повторяется.
func (s *DocumentService) CreateDocument(ctx context.Context, actor *security.Claims, input *model.CreateDocumentInput) (*model.CreateDocumentOutput, error) {
	if err := s.validateCreateInput(ctx, input); err != nil {
		return nil, err
	}

	department, err := s.directory.Get(ctx, actor.DepartmentID)
	if err != nil {
		return nil, err
	}

	day := time.Now()

	for attempt := 0; attempt < maxOrderAttempts; attempt++ {
		output, err := s.tryCreate(ctx, actor, input, department, day)
		if errors.Is(err, apperrors.ErrDuplicateOrderNumber) {
			if input.OrderNumber != "" {
				// ручной номер не перегенерируется
				return nil, apperrors.ErrDuplicateOrderNumber
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		s.afterCreate(ctx, actor, input, output.Document)
		return output, nil
	}

	return nil, apperrors.ErrGenerationExhausted
}

func (s *DocumentService) tryCreate(ctx context.Context, actor *security.Claims, input *model.CreateDocumentInput, department *model.Department, day time.Time) (*model.CreateDocumentOutput, error) {
	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[DocumentService] не удалось начать транзакцию", err)
	}
	defer rollback()

	orderNumber := input.OrderNumber
	if orderNumber == "" {
		orderNumber, err = s.allocator.Next(ctx, tx, department, input.DocumentType, day)
		if err != nil {
			return nil, err
		}
	} else {
		exists, err := s.documentRepository.OrderNumberExists(ctx, tx, department.ID, orderNumber, day)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.ErrDuplicateOrderNumber
		}
	}

	document := &model.Document{
		UUID:                 uuid.New().String(),
		OwnerUUID:            actor.UserUUID,
		DepartmentID:         actor.DepartmentID,
		Subject:              input.Subject,
		Description:          input.Description,
		OrderNumber:          orderNumber,
		DocumentType:         input.DocumentType,
		Status:               model.DocStatusPending,
		BarcodeValue:         BarcodeFromOrderNumber(orderNumber),
		ThroughDepartmentIDs: input.ThroughDepartmentIDs,
	}
	if err = s.documentRepository.Create(ctx, tx, document); err != nil {
		return nil, err
	}

	if err = s.insertInitialChain(ctx, tx, actor, input, document); err != nil {
		return nil, err
	}

	files := make([]model.DocumentFile, 0, len(input.Files))
	for _, fileInput := range input.Files {
		file := model.DocumentFile{
			UUID:             uuid.New().String(),
			DocumentUUID:     document.UUID,
			OriginalFilename: fileInput.OriginalFilename,
			MimeType:         fileInput.MimeType,
			SizeBytes:        fileInput.SizeBytes,
			UploadedBy:       actor.UserUUID,
			UploadType:       model.UploadOriginal,
		}
		file.FilePath = objectKey(document.UUID, file.UUID, fileInput.OriginalFilename)
		if err = s.fileRepository.Insert(ctx, tx, &file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	if err = commit(); err != nil {
		return nil, util.LogError("[DocumentService] не удалось зафиксировать создание документа", err)
	}

	slots, err := presignUploads(ctx, s.s3Storage, s.ttl, files)
	if err != nil {
		return nil, err
	}
	return &model.CreateDocumentOutput{Document: document, Uploads: slots}, nil
}

// insertInitialChain открывает цепочку: для for_info независимое звено на
// каждый отдел рассылки, иначе одно звено на первый шаг маршрута
func (s *DocumentService) insertInitialChain(ctx context.Context, tx sqlx.ExtContext, actor *security.Claims, input *model.CreateDocumentInput, document *model.Document) error {
	if input.DocumentType == model.TypeForInfo {
		for _, departmentID := range input.InfoDepartmentIDs {
			entry := chainEntry(document.UUID, 1, model.DepartmentTarget(departmentID), actor, nil, "")
			if err := s.recipientRepository.Insert(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	}

	firstHop := input.TargetDepartmentID
	if len(input.ThroughDepartmentIDs) > 0 {
		firstHop = input.ThroughDepartmentIDs[0]
	}
	final := input.TargetDepartmentID
	entry := chainEntry(document.UUID, 1, model.DepartmentTarget(firstHop), actor, &final, "")
	return s.recipientRepository.Insert(ctx, tx, entry)
}

func (s *DocumentService) validateCreateInput(ctx context.Context, input *model.CreateDocumentInput) error {
	if strings.TrimSpace(input.Subject) == "" || input.DocumentType.Valid() == false {
		return apperrors.ErrValidationFailed
	}

	if input.DocumentType == model.TypeForInfo {
		if len(input.InfoDepartmentIDs) == 0 {
			return apperrors.ErrValidationFailed
		}
		return s.departmentsExist(ctx, input.InfoDepartmentIDs)
	}

	if input.TargetDepartmentID == "" {
		return apperrors.ErrValidationFailed
	}
	ids := append([]string{input.TargetDepartmentID}, input.ThroughDepartmentIDs...)
	return s.departmentsExist(ctx, ids)
}

func (s *DocumentService) departmentsExist(ctx context.Context, ids []string) error {
	for _, id := range ids {
		exists, err := s.directory.Exists(ctx, id)
		if err != nil {
			return err
		}
		if exists == false {
			return apperrors.ErrValidationFailed
		}
	}
	return nil
}

func (s *DocumentService) afterCreate(ctx context.Context, actor *security.Claims, input *model.CreateDocumentInput, document *model.Document) {
	if err := s.audit.RecordDocument(ctx, document.UUID, actor.UserUUID, "create", fmt.Sprintf("документ зарегистрирован под номером %s", document.OrderNumber)); err != nil {
		util.LogError("[DocumentService] не удалось записать действие в журнал", err)
	}

	message := fmt.Sprintf("вам направлен документ %s", document.OrderNumber)
	if input.DocumentType == model.TypeForInfo {
		for _, departmentID := range input.InfoDepartmentIDs {
			if err := s.notifier.NotifyDepartment(ctx, departmentID, message, document.UUID); err != nil {
				util.LogError("[DocumentService] уведомление не доставлено", err)
			}
		}
		return
	}

	firstHop := input.TargetDepartmentID
	if len(input.ThroughDepartmentIDs) > 0 {
		firstHop = input.ThroughDepartmentIDs[0]
	}
	if err := s.notifier.NotifyDepartment(ctx, firstHop, message, document.UUID); err != nil {
		util.LogError("[DocumentService] уведомление не доставлено", err)
	}
}

// GetDocumentByUUID : карточка документа с цепочкой и файлами; сам документ
// читается через Redis-кэш
func (s *DocumentService) GetDocumentByUUID(ctx context.Context, actor *security.Claims, documentUUID string) (*model.GetDocumentResult, error) {
	document, err := s.cacheRepository.GetDocument(ctx, documentUUID)
	if err != nil {
		util.LogError("[DocumentService] ошибка чтения кэша", err)
	}
	if document == nil {
		document, err = s.documentRepository.GetByUUID(ctx, s.db, documentUUID)
		if err != nil {
			return nil, err
		}
		if err = s.cacheRepository.SetDocument(ctx, document); err != nil {
			util.LogError("[DocumentService] не удалось сохранить документ в кэш", err)
		}
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, s.db, documentUUID)
	if err != nil {
		return nil, err
	}
	if CanView(document, entries, actor) == false {
		return nil, apperrors.ErrUnauthorized
	}

	files, err := s.filesWithURLs(ctx, documentUUID)
	if err != nil {
		return nil, err
	}

	return &model.GetDocumentResult{Document: document, Recipients: entries, Files: files}, nil
}

// GetPublicDocument : публичная карточка по токену, без аутентификации
func (s *DocumentService) GetPublicDocument(ctx context.Context, token string) (*model.GetDocumentResult, error) {
	document, err := s.documentRepository.GetPublicByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, s.db, document.UUID)
	if err != nil {
		return nil, err
	}
	files, err := s.filesWithURLs(ctx, document.UUID)
	if err != nil {
		return nil, err
	}

	return &model.GetDocumentResult{Document: document, Recipients: entries, Files: files}, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, actor *security.Claims, cursor string, limit int) ([]model.Document, string, error) {
	return s.documentRepository.ListForActor(ctx, s.db, actor.UserUUID, actor.DepartmentID, cursor, limit)
}

// PublishDocument включает публичный доступ к согласованному документу и
// возвращает токен ссылки
func (s *DocumentService) PublishDocument(ctx context.Context, actor *security.Claims, documentUUID string) (string, error) {
	document, err := s.documentRepository.GetByUUID(ctx, s.db, documentUUID)
	if err != nil {
		return "", err
	}
	if document.OwnerUUID != actor.UserUUID {
		return "", apperrors.ErrUnauthorized
	}
	if document.Status != model.DocStatusApproved {
		return "", apperrors.ErrValidationFailed
	}
	if document.IsPublic && document.PublicToken != nil {
		return *document.PublicToken, nil
	}

	// публичная ссылка не должна вести на битые вложения: перед публикацией
	// проверяется, что клиент действительно загрузил каждый файл
	files, err := s.fileRepository.ListByDocument(ctx, s.db, documentUUID)
	if err != nil {
		return "", err
	}
	for _, file := range files {
		exists, err := s.s3Storage.ObjectExists(ctx, file.FilePath)
		if err != nil {
			return "", util.LogError("[DocumentService] не удалось проверить вложение в хранилище", err)
		}
		if exists == false {
			return "", apperrors.ErrValidationFailed
		}
	}

	var token string
	for attempt := 0; attempt < maxOrderAttempts; attempt++ {
		candidate, err := util.GenerateRandomToken(publicTokenLength)
		if err != nil {
			return "", util.LogError("[DocumentService] не удалось сгенерировать токен", err)
		}
		exists, err := s.documentRepository.PublicTokenExists(ctx, s.db, candidate)
		if err != nil {
			return "", err
		}
		if exists == false {
			token = candidate
			break
		}
	}
	if token == "" {
		return "", apperrors.ErrGenerationExhausted
	}

	if err = s.documentRepository.SetPublic(ctx, s.db, documentUUID, token); err != nil {
		return "", err
	}
	if err = s.cacheRepository.DeleteDocument(ctx, documentUUID); err != nil {
		util.LogError("[DocumentService] не удалось инвалидировать кэш", err)
	}
	if err = s.audit.RecordDocument(ctx, documentUUID, actor.UserUUID, "publish", "документ опубликован по ссылке"); err != nil {
		util.LogError("[DocumentService] не удалось записать действие в журнал", err)
	}

	return token, nil
}

// DeleteDocument : автор удаляет документ вместе с цепочкой и файлами;
// согласованные документы остаются в архиве и удалению не подлежат
func (s *DocumentService) DeleteDocument(ctx context.Context, actor *security.Claims, documentUUID string) error {
	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[DocumentService] не удалось начать транзакцию", err)
	}
	defer rollback()

	document, err := s.documentRepository.GetForUpdate(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	if document.OwnerUUID != actor.UserUUID {
		return apperrors.ErrUnauthorized
	}
	if document.Status == model.DocStatusApproved {
		return apperrors.ErrValidationFailed
	}

	filePaths, err := s.documentRepository.Delete(ctx, tx, documentUUID)
	if err != nil {
		return err
	}

	if err = commit(); err != nil {
		return util.LogError("[DocumentService] не удалось зафиксировать удаление", err)
	}

	for _, path := range filePaths {
		if err := s.s3Storage.DeleteObject(ctx, path); err != nil {
			util.LogError("[DocumentService] не удалось удалить объект из S3", err)
		}
	}
	if err = s.cacheRepository.DeleteDocument(ctx, documentUUID); err != nil {
		util.LogError("[DocumentService] не удалось инвалидировать кэш", err)
	}
	if err = s.audit.RecordUser(ctx, document.OwnerUUID, actor.UserUUID, "document.delete", fmt.Sprintf("документ %s удален", document.OrderNumber)); err != nil {
		util.LogError("[DocumentService] не удалось записать действие в журнал", err)
	}
	return nil
}

// DeleteFile : вложение можно заменить только у возвращенного документа,
// пока автор готовит повторную отправку
func (s *DocumentService) DeleteFile(ctx context.Context, actor *security.Claims, fileUUID string) error {
	file, err := s.fileRepository.GetByUUID(ctx, s.db, fileUUID)
	if err != nil {
		return err
	}
	document, err := s.documentRepository.GetByUUID(ctx, s.db, file.DocumentUUID)
	if err != nil {
		return err
	}
	if document.OwnerUUID != actor.UserUUID {
		return apperrors.ErrUnauthorized
	}
	if document.Status != model.DocStatusReturned {
		return apperrors.ErrValidationFailed
	}

	if err = s.fileRepository.Delete(ctx, s.db, fileUUID); err != nil {
		return err
	}
	if err = s.s3Storage.DeleteObject(ctx, file.FilePath); err != nil {
		util.LogError("[DocumentService] не удалось удалить объект из S3", err)
	}
	if err = s.audit.RecordDocument(ctx, document.UUID, actor.UserUUID, "file.delete", fmt.Sprintf("файл %s удален", file.OriginalFilename)); err != nil {
		util.LogError("[DocumentService] не удалось записать действие в журнал", err)
	}
	return nil
}

func (s *DocumentService) filesWithURLs(ctx context.Context, documentUUID string) ([]model.FileWithURL, error) {
	files, err := s.fileRepository.ListByDocument(ctx, s.db, documentUUID)
	if err != nil {
		return nil, err
	}

	result := make([]model.FileWithURL, 0, len(files))
	for _, file := range files {
		url, err := s.s3Storage.GeneratePresignedGetURL(ctx, file.FilePath, s.ttl)
		if err != nil {
			return nil, err
		}
		result = append(result, model.FileWithURL{File: file, GetURL: url})
	}
	return result, nil
}
