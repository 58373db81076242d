package service

import (
	"context"
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

// RoutingService — переходы маршрутной цепочки. Все мутации цепочки идут
// в транзакции под блокировкой строки документа, поэтому конкурентные
// операции над одним документом сериализуются.
type RoutingService struct {
	db                  sqlx.ExtContext
	documentRepository  ports.DocumentRepository
	recipientRepository ports.RecipientRepository
	fileRepository      ports.FileRepository
	directory           ports.DepartmentDirectory
	cacheRepository     ports.CacheRepository
	s3Storage           ports.S3Storage
	notifier            ports.Notifier
	audit               ports.AuditSink
	uploadTTL           time.Duration
}

func NewRoutingService(
	db sqlx.ExtContext,
	documentRepository ports.DocumentRepository,
	recipientRepository ports.RecipientRepository,
	fileRepository ports.FileRepository,
	directory ports.DepartmentDirectory,
	cacheRepository ports.CacheRepository,
	s3Storage ports.S3Storage,
	notifier ports.Notifier,
	audit ports.AuditSink,
	uploadTTL time.Duration,
) *RoutingService {
	return &RoutingService{
		db:                  db,
		documentRepository:  documentRepository,
		recipientRepository: recipientRepository,
		fileRepository:      fileRepository,
		directory:           directory,
		cacheRepository:     cacheRepository,
		s3Storage:           s3Storage,
		notifier:            notifier,
		audit:               audit,
		uploadTTL:           uploadTTL,
	}
}

// Forward : текущий держатель передает документ следующему отделу или
// конкретному пользователю. Активное звено закрывается статусом received,
// новое звено наследует финального получателя.
func (s *RoutingService) Forward(ctx context.Context, actor *security.Claims, documentUUID string, target model.ForwardTarget, comments string, files []model.FileInput) ([]model.UploadSlot, error) {
	if target.Valid() == false {
		return nil, apperrors.ErrValidationFailed
	}
	if target.Kind == model.TargetDepartment {
		exists, err := s.directory.Exists(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if exists == false {
			return nil, apperrors.ErrValidationFailed
		}
	}

	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[RoutingService] не удалось начать транзакцию", err)
	}
	defer rollback()

	document, err := s.documentRepository.GetForUpdate(ctx, tx, documentUUID)
	if err != nil {
		return nil, err
	}
	if isTerminalDocStatus(document.Status) {
		return nil, apperrors.ErrValidationFailed
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, tx, documentUUID)
	if err != nil {
		return nil, err
	}

	// у рассылки for_info активных звеньев несколько, нужно именно свое
	active := ActiveEntryFor(entries, actor)
	if active == nil {
		return nil, apperrors.ErrNotCurrentHolder
	}

	if err = s.recipientRepository.Close(ctx, tx, active.UUID, model.RecipientReceived, nil); err != nil {
		return nil, err
	}

	next := chainEntry(documentUUID, MaxSequence(entries)+1, target, actor, active.FinalRecipientDepartmentID, comments)
	if err = s.recipientRepository.Insert(ctx, tx, next); err != nil {
		return nil, err
	}

	insertedFiles, err := s.insertResponseFiles(ctx, tx, document.UUID, next.UUID, actor.UserUUID, files)
	if err != nil {
		return nil, err
	}

	newStatus := model.DocStatusInReview
	if document.DocumentType == model.TypeForInfo && forInfoAllReceived(entries, active.UUID, next) {
		newStatus = model.DocStatusReceived
	}
	// approved не перетирается
	if document.Status != model.DocStatusApproved && document.Status != newStatus {
		if err = s.documentRepository.UpdateStatus(ctx, tx, documentUUID, newStatus); err != nil {
			return nil, err
		}
	}

	if err = commit(); err != nil {
		return nil, util.LogError("[RoutingService] не удалось зафиксировать пересылку", err)
	}

	slots, err := presignUploads(ctx, s.s3Storage, s.uploadTTL, insertedFiles)
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, document, actor, "forward", fmt.Sprintf("документ передан (%s %s)", target.Kind, target.ID))
	s.notifyTarget(ctx, target, document.UUID, fmt.Sprintf("вам передан документ %s", document.OrderNumber))

	return slots, nil
}

// Respond : решение по документу. Решение принимает адресат последнего
// звена либо финальный отдел (тот может подписать, даже пока документ лежит
// у промежуточного). Промежуточные approve/rejected только дописывают
// терминальное звено; статус документа меняет лишь финальный согласующий.
// Для returned проверка держателя не выполняется, но комментарий обязателен.
func (s *RoutingService) Respond(ctx context.Context, actor *security.Claims, documentUUID string, decision model.RecipientStatus, comments string) error {
	switch decision {
	case model.RecipientApproved, model.RecipientRejected:
	case model.RecipientReturned:
		if strings.TrimSpace(comments) == "" {
			return apperrors.ErrValidationFailed
		}
	default:
		return apperrors.ErrValidationFailed
	}

	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[RoutingService] не удалось начать транзакцию", err)
	}
	defer rollback()

	document, err := s.documentRepository.GetForUpdate(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	if isTerminalDocStatus(document.Status) || document.Status == model.DocStatusApproved || document.Status == model.DocStatusRejected {
		return apperrors.ErrValidationFailed
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	latest := LatestEntry(entries)
	if latest == nil {
		return apperrors.ErrNotCurrentHolder
	}

	if decision != model.RecipientReturned && CanDecide(entries, actor) == false {
		return apperrors.ErrNotCurrentHolder
	}

	isFinal := IsFinalApprover(latest, actor)

	if isOpenStatus(latest.Status) {
		if err = s.recipientRepository.Close(ctx, tx, latest.UUID, model.RecipientReceived, nil); err != nil {
			return err
		}
	}

	now := time.Now()
	terminal := &model.DocumentRecipient{
		UUID:                       uuid.New().String(),
		DocumentUUID:               documentUUID,
		Sequence:                   latest.Sequence + 1,
		ForwardedBy:                &actor.UserUUID,
		FinalRecipientDepartmentID: latest.FinalRecipientDepartmentID,
		Status:                     decision,
		IsActive:                   false,
		RespondedAt:                &now,
	}
	if comments != "" {
		terminal.Comments = &comments
	}
	if decision == model.RecipientReturned {
		// возврат адресуется отделу автора
		terminal.DepartmentID = &document.DepartmentID
	} else {
		terminal.DepartmentID = &actor.DepartmentID
		terminal.UserUUID = &actor.UserUUID
	}
	if err = s.recipientRepository.Insert(ctx, tx, terminal); err != nil {
		return err
	}

	// статус документа меняют только returned и решение финального
	// согласующего; промежуточные approve/rejected закрывают свой этап,
	// не закрывая документ
	var newStatus model.DocumentStatus
	switch {
	case decision == model.RecipientReturned:
		newStatus = model.DocStatusReturned
	case isFinal && decision == model.RecipientRejected:
		newStatus = model.DocStatusRejected
	case isFinal && decision == model.RecipientApproved:
		newStatus = model.DocStatusApproved
	}
	if newStatus != "" {
		if err = s.documentRepository.UpdateStatus(ctx, tx, documentUUID, newStatus); err != nil {
			return err
		}
	}

	if err = commit(); err != nil {
		return util.LogError("[RoutingService] не удалось зафиксировать решение", err)
	}

	s.afterTransition(ctx, document, actor, string(decision), fmt.Sprintf("решение по документу: %s", decision))
	if err := s.notifier.NotifyUser(ctx, document.OwnerUUID, fmt.Sprintf("по документу %s принято решение: %s", document.OrderNumber, decision), document.UUID); err != nil {
		util.LogError("[RoutingService] уведомление не доставлено", err)
	}
	return nil
}

// Receive : подтверждение получения через кабинет (без штрих-кода)
func (s *RoutingService) Receive(ctx context.Context, actor *security.Claims, documentUUID string) error {
	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[RoutingService] не удалось начать транзакцию", err)
	}
	defer rollback()

	document, err := s.documentRepository.GetForUpdate(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	if isTerminalDocStatus(document.Status) {
		return apperrors.ErrValidationFailed
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, tx, documentUUID)
	if err != nil {
		return err
	}

	if err = s.receiveEntry(ctx, tx, document, entries, actor, commit); err != nil {
		return err
	}

	s.afterTransition(ctx, document, actor, "receive", "получение документа подтверждено")
	return nil
}

// ReceiveByBarcode : подтверждение получения сканированием штрих-кода.
// Токен ищется строго как есть, без нормализации. Штрих-код уникален только
// в пределах отдел+день, поэтому берется самый свежий документ с таким кодом.
func (s *RoutingService) ReceiveByBarcode(ctx context.Context, actor *security.Claims, barcode string) (*model.Document, error) {
	code := strings.TrimSpace(barcode)
	if code == "" {
		return nil, apperrors.ErrValidationFailed
	}

	document, err := s.documentRepository.GetByBarcode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}

	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[RoutingService] не удалось начать транзакцию", err)
	}
	defer rollback()

	document, err = s.documentRepository.GetForUpdate(ctx, tx, document.UUID)
	if err != nil {
		return nil, err
	}
	if isTerminalDocStatus(document.Status) {
		return nil, apperrors.ErrValidationFailed
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, tx, document.UUID)
	if err != nil {
		return nil, err
	}

	if err = s.receiveEntry(ctx, tx, document, entries, actor, commit); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, document, actor, "receive", "получение подтверждено сканированием штрих-кода")
	return document, nil
}

// receiveEntry закрывает подходящее звено статусом received и фиксирует
// транзакцию. Для рассылок for_info у каждого отдела свое независимое звено.
func (s *RoutingService) receiveEntry(ctx context.Context, tx sqlx.ExtContext, document *model.Document, entries []model.DocumentRecipient, actor *security.Claims, commit func() error) error {
	var entry *model.DocumentRecipient

	if document.DocumentType == model.TypeForInfo {
		for i := range entries {
			if entries[i].DepartmentID != nil && *entries[i].DepartmentID == actor.DepartmentID {
				entry = &entries[i]
				break
			}
		}
		if entry == nil {
			return apperrors.ErrNotAPendingRecipient
		}
		if entry.Status == model.RecipientReceived {
			if entry.ReceivedBy != nil && *entry.ReceivedBy == actor.UserUUID {
				return apperrors.ErrAlreadyReceivedByYou
			}
			return apperrors.ErrAlreadyReceivedByDepartment
		}
	} else {
		entry = LatestEntry(entries)
		if entry == nil || EntryMatchesActor(entry, actor) == false {
			return apperrors.ErrNotCurrentRecipient
		}
		if entry.Status == model.RecipientReceived {
			if entry.ReceivedBy != nil && *entry.ReceivedBy == actor.UserUUID {
				return apperrors.ErrAlreadyReceivedByYou
			}
			return apperrors.ErrAlreadyReceived
		}
		if isOpenStatus(entry.Status) == false {
			return apperrors.ErrAlreadyReceived
		}
	}

	if err := s.recipientRepository.Close(ctx, tx, entry.UUID, model.RecipientReceived, &actor.UserUUID); err != nil {
		return err
	}

	if document.DocumentType == model.TypeForInfo {
		if forInfoAllReceived(entries, entry.UUID, nil) {
			if err := s.documentRepository.UpdateStatus(ctx, tx, document.UUID, model.DocStatusReceived); err != nil {
				return err
			}
		}
	} else if document.Status == model.DocStatusPending {
		if err := s.documentRepository.UpdateStatus(ctx, tx, document.UUID, model.DocStatusInReview); err != nil {
			return err
		}
	}

	if err := commit(); err != nil {
		return util.LogError("[RoutingService] не удалось зафиксировать получение", err)
	}
	return nil
}

// Resend : автор отправляет возвращенный документ заново. Номер приказа
// сохраняется, цепочка продолжается с нового pending-звена.
func (s *RoutingService) Resend(ctx context.Context, actor *security.Claims, documentUUID string, target model.ForwardTarget, comments string) error {
	if target.Valid() == false {
		return apperrors.ErrValidationFailed
	}
	if target.Kind == model.TargetDepartment {
		exists, err := s.directory.Exists(ctx, target.ID)
		if err != nil {
			return err
		}
		if exists == false {
			return apperrors.ErrValidationFailed
		}
	}

	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[RoutingService] не удалось начать транзакцию", err)
	}
	defer rollback()

	document, err := s.documentRepository.GetForUpdate(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	if document.OwnerUUID != actor.UserUUID {
		return apperrors.ErrUnauthorized
	}
	if document.Status != model.DocStatusReturned {
		return apperrors.ErrValidationFailed
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	if active := ActiveEntry(entries); active != nil {
		if err = s.recipientRepository.Deactivate(ctx, tx, active.UUID); err != nil {
			return err
		}
	}

	var final *string
	if latest := LatestEntry(entries); latest != nil {
		final = latest.FinalRecipientDepartmentID
	}

	next := chainEntry(documentUUID, MaxSequence(entries)+1, target, actor, final, comments)
	if err = s.recipientRepository.Insert(ctx, tx, next); err != nil {
		return err
	}
	if err = s.documentRepository.UpdateStatus(ctx, tx, documentUUID, model.DocStatusPending); err != nil {
		return err
	}

	if err = commit(); err != nil {
		return util.LogError("[RoutingService] не удалось зафиксировать повторную отправку", err)
	}

	s.afterTransition(ctx, document, actor, "resend", "документ отправлен повторно после возврата")
	s.notifyTarget(ctx, target, document.UUID, fmt.Sprintf("вам повторно направлен документ %s", document.OrderNumber))
	return nil
}

// Cancel : автор снимает документ с маршрута; согласованные документы
// отозвать нельзя
func (s *RoutingService) Cancel(ctx context.Context, actor *security.Claims, documentUUID string) error {
	tx, rollback, commit, err := s.documentRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[RoutingService] не удалось начать транзакцию", err)
	}
	defer rollback()

	document, err := s.documentRepository.GetForUpdate(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	if document.OwnerUUID != actor.UserUUID {
		return apperrors.ErrUnauthorized
	}
	if document.Status == model.DocStatusApproved || isTerminalDocStatus(document.Status) {
		return apperrors.ErrValidationFailed
	}

	entries, err := s.recipientRepository.ListByDocument(ctx, tx, documentUUID)
	if err != nil {
		return err
	}
	if active := ActiveEntry(entries); active != nil {
		if err = s.recipientRepository.Deactivate(ctx, tx, active.UUID); err != nil {
			return err
		}
	}
	if err = s.documentRepository.UpdateStatus(ctx, tx, documentUUID, model.DocStatusCancelled); err != nil {
		return err
	}

	if err = commit(); err != nil {
		return util.LogError("[RoutingService] не удалось зафиксировать отзыв", err)
	}

	s.afterTransition(ctx, document, actor, "cancel", "документ снят с маршрута автором")
	return nil
}

// forInfoAllReceived : все звенья рассылки получены; закрываемое звено
// считается полученным, добавляемое (если есть) учитывается как оно есть
func forInfoAllReceived(entries []model.DocumentRecipient, closedUUID string, appended *model.DocumentRecipient) bool {
	if appended != nil && appended.Status != model.RecipientReceived {
		return false
	}
	for i := range entries {
		if entries[i].UUID == closedUUID {
			continue
		}
		if entries[i].Status != model.RecipientReceived {
			return false
		}
	}
	return true
}

func (s *RoutingService) insertResponseFiles(ctx context.Context, tx sqlx.ExtContext, documentUUID string, recipientUUID string, uploaderUUID string, files []model.FileInput) ([]model.DocumentFile, error) {
	inserted := make([]model.DocumentFile, 0, len(files))
	for _, input := range files {
		file := model.DocumentFile{
			UUID:             uuid.New().String(),
			DocumentUUID:     documentUUID,
			RecipientUUID:    &recipientUUID,
			OriginalFilename: input.OriginalFilename,
			MimeType:         input.MimeType,
			SizeBytes:        input.SizeBytes,
			UploadedBy:       uploaderUUID,
			UploadType:       model.UploadResponse,
		}
		file.FilePath = objectKey(documentUUID, file.UUID, input.OriginalFilename)
		if err := s.fileRepository.Insert(ctx, tx, &file); err != nil {
			return nil, err
		}
		inserted = append(inserted, file)
	}
	return inserted, nil
}

// afterTransition — журнал и инвалидация кэша после коммита; сбои здесь
// не откатывают переход
func (s *RoutingService) afterTransition(ctx context.Context, document *model.Document, actor *security.Claims, action string, description string) {
	if err := s.cacheRepository.DeleteDocument(ctx, document.UUID); err != nil {
		util.LogError("[RoutingService] не удалось инвалидировать кэш", err)
	}
	if err := s.audit.RecordDocument(ctx, document.UUID, actor.UserUUID, action, description); err != nil {
		util.LogError("[RoutingService] не удалось записать действие в журнал", err)
	}
}

func (s *RoutingService) notifyTarget(ctx context.Context, target model.ForwardTarget, documentUUID string, message string) {
	var err error
	if target.Kind == model.TargetUser {
		err = s.notifier.NotifyUser(ctx, target.ID, message, documentUUID)
	} else {
		err = s.notifier.NotifyDepartment(ctx, target.ID, message, documentUUID)
	}
	if err != nil {
		util.LogError("[RoutingService] уведомление не доставлено", err)
	}
}

// chainEntry собирает новое открытое звено цепочки
func chainEntry(documentUUID string, sequence int, target model.ForwardTarget, actor *security.Claims, final *string, comments string) *model.DocumentRecipient {
	entry := &model.DocumentRecipient{
		UUID:                       uuid.New().String(),
		DocumentUUID:               documentUUID,
		Sequence:                   sequence,
		ForwardedBy:                &actor.UserUUID,
		FinalRecipientDepartmentID: final,
		Status:                     model.RecipientPending,
		IsActive:                   true,
	}
	if target.Kind == model.TargetUser {
		entry.UserUUID = &target.ID
	} else {
		entry.DepartmentID = &target.ID
	}
	if comments != "" {
		entry.Comments = &comments
	}
	return entry
}

func isOpenStatus(status model.RecipientStatus) bool {
	return status == model.RecipientPending || status == model.RecipientForwarded
}

func isTerminalDocStatus(status model.DocumentStatus) bool {
	return status == model.DocStatusCancelled || status == model.DocStatusArchived
}
