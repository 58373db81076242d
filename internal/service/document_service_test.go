package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"document-routing-server/internal/apperrors"
	"document-routing-server/internal/model"
	"document-routing-server/internal/ports"
	"document-routing-server/internal/service"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== Кэш с учетом обращений =====

type recordingCache struct {
	mu      sync.Mutex
	docs    map[string]*model.Document
	sets    int
	deletes int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{docs: map[string]*model.Document{}}
}

func (c *recordingCache) GetDocument(ctx context.Context, uuid string) (*model.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docs[uuid], nil
}

func (c *recordingCache) SetDocument(ctx context.Context, document *model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[document.UUID] = document
	c.sets++
	return nil
}

func (c *recordingCache) DeleteDocument(ctx context.Context, uuid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, uuid)
	c.deletes++
	return nil
}

// conflictDocumentRepository имитирует проигрыш гонки за номер: первые
// remaining вставок падают на уникальном индексе
type conflictDocumentRepository struct {
	*memDocumentRepository
	mu          sync.Mutex
	remaining   int
	createCalls int
}

func (r *conflictDocumentRepository) Create(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error {
	r.mu.Lock()
	r.createCalls++
	conflict := r.remaining > 0
	if conflict {
		r.remaining--
	}
	r.mu.Unlock()
	if conflict {
		return apperrors.ErrDuplicateOrderNumber
	}
	return r.memDocumentRepository.Create(ctx, exec, document)
}

// ===== Фикстура =====

type documentFixture struct {
	svc      *service.DocumentService
	store    *memStore
	cache    *recordingCache
	s3       *fakeS3
	notifier *recordingNotifier
	audit    *recordingAudit
}

func newDocumentFixtureWith(store *memStore, docRepo ports.DocumentRepository, departments map[string]*model.Department) *documentFixture {
	cache := newRecordingCache()
	s3 := &fakeS3{missing: map[string]bool{}}
	notifier := &recordingNotifier{}
	audit := &recordingAudit{}
	svc := service.NewDocumentService(
		nil,
		docRepo,
		&memRecipientRepository{store},
		&memFileRepository{store},
		&memDirectory{departments},
		cache,
		s3,
		notifier,
		audit,
		time.Hour,
	)
	return &documentFixture{svc: svc, store: store, cache: cache, s3: s3, notifier: notifier, audit: audit}
}

func departmentMap(ids ...string) map[string]*model.Department {
	departments := map[string]*model.Department{}
	for _, id := range ids {
		departments[id] = &model.Department{
			ID:       id,
			Code:     "D" + id[len(id)-1:],
			Name:     "Отдел " + id,
			IsActive: true,
		}
	}
	return departments
}

func newDocumentFixture(departmentIDs ...string) *documentFixture {
	store := newMemStore()
	return newDocumentFixtureWith(store, &memDocumentRepository{store}, departmentMap(departmentIDs...))
}

func orderInput(target string) *model.CreateDocumentInput {
	return &model.CreateDocumentInput{
		Subject:            "О проведении инвентаризации",
		Description:        "до конца квартала",
		DocumentType:       model.TypeOrder,
		TargetDepartmentID: target,
	}
}

// ===== Тесты CreateDocument =====

func TestCreateDocument_Success(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-c")
	actor := staffClaims("owner", "dep-a")

	input := orderInput("dep-c")
	input.Files = []model.FileInput{{OriginalFilename: "prikaz.pdf", MimeType: "application/pdf", SizeBytes: 2048}}

	output, err := f.svc.CreateDocument(context.Background(), actor, input)
	require.NoError(t, err)
	require.NotNil(t, output.Document)

	wantNumber := service.FormatOrderNumber("Da", time.Now(), 1)
	assert.Equal(t, wantNumber, output.Document.OrderNumber)
	assert.Equal(t, service.BarcodeFromOrderNumber(wantNumber), output.Document.BarcodeValue)
	assert.Equal(t, model.DocStatusPending, output.Document.Status)
	assert.Equal(t, "owner", output.Document.OwnerUUID)
	assert.Equal(t, "dep-a", output.Document.DepartmentID)

	// слот загрузки оригинала
	require.Len(t, output.Uploads, 1)
	assert.Equal(t, model.UploadOriginal, output.Uploads[0].File.UploadType)
	assert.Contains(t, output.Uploads[0].PutURL, "https://s3.local/put/documents/"+output.Document.UUID)

	// цепочка открыта одним звеном на финальный отдел
	entries := f.store.chains[output.Document.UUID]
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Sequence)
	assert.Equal(t, "dep-c", *entries[0].DepartmentID)
	assert.Equal(t, "dep-c", *entries[0].FinalRecipientDepartmentID)
	assert.True(t, entries[0].IsActive)

	assert.Contains(t, f.audit.actions, "create")
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "department:dep-c")
}

func TestCreateDocument_SequentialNumbers(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-c")
	actor := staffClaims("owner", "dep-a")

	first, err := f.svc.CreateDocument(context.Background(), actor, orderInput("dep-c"))
	require.NoError(t, err)
	second, err := f.svc.CreateDocument(context.Background(), actor, orderInput("dep-c"))
	require.NoError(t, err)

	assert.Equal(t, service.FormatOrderNumber("Da", time.Now(), 1), first.Document.OrderNumber)
	assert.Equal(t, service.FormatOrderNumber("Da", time.Now(), 2), second.Document.OrderNumber)
}

func TestCreateDocument_SharedCounterAcrossTypes(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-c")
	actor := staffClaims("owner", "dep-a")

	_, err := f.svc.CreateDocument(context.Background(), actor, orderInput("dep-c"))
	require.NoError(t, err)

	memo := orderInput("dep-c")
	memo.DocumentType = model.TypeMemorandum
	second, err := f.svc.CreateDocument(context.Background(), actor, memo)
	require.NoError(t, err)

	// обычный отдел: счетчик общий на все типы документов
	assert.Equal(t, service.FormatOrderNumber("Da", time.Now(), 2), second.Document.OrderNumber)
}

func TestCreateDocument_PresidentialPerTypeCounter(t *testing.T) {
	store := newMemStore()
	departments := departmentMap("dep-p", "dep-c")
	departments["dep-p"].IsPresidential = true
	f := newDocumentFixtureWith(store, &memDocumentRepository{store}, departments)
	actor := staffClaims("owner", "dep-p")

	_, err := f.svc.CreateDocument(context.Background(), actor, orderInput("dep-c"))
	require.NoError(t, err)

	memo := orderInput("dep-c")
	memo.DocumentType = model.TypeMemorandum
	second, err := f.svc.CreateDocument(context.Background(), actor, memo)
	require.NoError(t, err)

	// президентский отдел: у каждого типа свой счетчик
	assert.Equal(t, service.FormatOrderNumber("Dp", time.Now(), 1), second.Document.OrderNumber)
}

func TestCreateDocument_ThroughRouteFirstHop(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-b", "dep-d", "dep-c")
	actor := staffClaims("owner", "dep-a")

	input := orderInput("dep-c")
	input.ThroughDepartmentIDs = []string{"dep-b", "dep-d"}

	output, err := f.svc.CreateDocument(context.Background(), actor, input)
	require.NoError(t, err)

	entries := f.store.chains[output.Document.UUID]
	require.Len(t, entries, 1)
	// первое звено на первый промежуточный отдел, финальный сохранен
	assert.Equal(t, "dep-b", *entries[0].DepartmentID)
	assert.Equal(t, "dep-c", *entries[0].FinalRecipientDepartmentID)
	assert.Contains(t, f.notifier.messages[0], "department:dep-b")
}

func TestCreateDocument_ForInfoFanOut(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-b", "dep-c")
	actor := staffClaims("owner", "dep-a")

	input := &model.CreateDocumentInput{
		Subject:           "График отпусков",
		DocumentType:      model.TypeForInfo,
		InfoDepartmentIDs: []string{"dep-b", "dep-c"},
	}

	output, err := f.svc.CreateDocument(context.Background(), actor, input)
	require.NoError(t, err)

	entries := f.store.chains[output.Document.UUID]
	require.Len(t, entries, 2)
	for _, entry := range entries {
		// независимые звенья рассылки: одинаковый sequence, без финального отдела
		assert.Equal(t, 1, entry.Sequence)
		assert.Nil(t, entry.FinalRecipientDepartmentID)
		assert.True(t, entry.IsActive)
	}
	assert.Len(t, f.notifier.messages, 2)
}

func TestCreateDocument_ManualNumber(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-c")
	actor := staffClaims("owner", "dep-a")

	input := orderInput("dep-c")
	input.OrderNumber = "Da-091525-777"

	output, err := f.svc.CreateDocument(context.Background(), actor, input)
	require.NoError(t, err)
	assert.Equal(t, "Da-091525-777", output.Document.OrderNumber)
	assert.Equal(t, "Da091525777", output.Document.BarcodeValue)
}

func TestCreateDocument_ManualNumberDuplicate(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-c")
	actor := staffClaims("owner", "dep-a")

	input := orderInput("dep-c")
	input.OrderNumber = "Da-091525-777"
	_, err := f.svc.CreateDocument(context.Background(), actor, input)
	require.NoError(t, err)

	// ручной номер не перегенерируется, конфликт возвращается сразу
	_, err = f.svc.CreateDocument(context.Background(), actor, input)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateOrderNumber)
	assert.Len(t, f.store.documents, 1)
}

func TestCreateDocument_RetryOnDuplicate(t *testing.T) {
	store := newMemStore()
	docRepo := &conflictDocumentRepository{memDocumentRepository: &memDocumentRepository{store}, remaining: 3}
	f := newDocumentFixtureWith(store, docRepo, departmentMap("dep-a", "dep-c"))
	actor := staffClaims("owner", "dep-a")

	output, err := f.svc.CreateDocument(context.Background(), actor, orderInput("dep-c"))
	require.NoError(t, err)
	assert.NotEmpty(t, output.Document.OrderNumber)
	// три проигранные гонки и одна успешная вставка
	assert.Equal(t, 4, docRepo.createCalls)
}

func TestCreateDocument_GenerationExhausted(t *testing.T) {
	store := newMemStore()
	docRepo := &conflictDocumentRepository{memDocumentRepository: &memDocumentRepository{store}, remaining: 1000}
	f := newDocumentFixtureWith(store, docRepo, departmentMap("dep-a", "dep-c"))
	actor := staffClaims("owner", "dep-a")

	_, err := f.svc.CreateDocument(context.Background(), actor, orderInput("dep-c"))
	assert.ErrorIs(t, err, apperrors.ErrGenerationExhausted)
	assert.Equal(t, 10, docRepo.createCalls)
	assert.Empty(t, f.store.documents)
}

func TestCreateDocument_Validation(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-c")
	actor := staffClaims("owner", "dep-a")

	tests := []struct {
		name  string
		input *model.CreateDocumentInput
	}{
		{"пустая тема", &model.CreateDocumentInput{Subject: "  ", DocumentType: model.TypeOrder, TargetDepartmentID: "dep-c"}},
		{"неизвестный тип", &model.CreateDocumentInput{Subject: "x", DocumentType: "decree", TargetDepartmentID: "dep-c"}},
		{"нет адресата", &model.CreateDocumentInput{Subject: "x", DocumentType: model.TypeOrder}},
		{"несуществующий адресат", &model.CreateDocumentInput{Subject: "x", DocumentType: model.TypeOrder, TargetDepartmentID: "dep-ghost"}},
		{"несуществующий промежуточный отдел", &model.CreateDocumentInput{Subject: "x", DocumentType: model.TypeOrder, TargetDepartmentID: "dep-c", ThroughDepartmentIDs: []string{"dep-ghost"}}},
		{"рассылка без отделов", &model.CreateDocumentInput{Subject: "x", DocumentType: model.TypeForInfo}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateDocument(context.Background(), actor, tt.input)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
		})
	}
	assert.Empty(t, f.store.documents)
}

func TestCreateDocument_ConcurrentNumbersUnique(t *testing.T) {
	f := newDocumentFixture("dep-a", "dep-c")

	const workers = 20
	var wg sync.WaitGroup
	numbers := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := staffClaims(fmt.Sprintf("user-%d", i), "dep-a")
			output, err := f.svc.CreateDocument(context.Background(), actor, orderInput("dep-c"))
			if assert.NoError(t, err) {
				numbers <- output.Document.OrderNumber
			}
		}(i)
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "номер %s выдан дважды", number)
		seen[number] = true
	}
	assert.Len(t, seen, workers)
}

// ===== Тесты чтения =====

func TestGetDocumentByUUID_CacheHit(t *testing.T) {
	f := newDocumentFixture("dep-a")
	actor := staffClaims("owner", "dep-a")

	// документ только в кэше: попадание в репозиторий упало бы с ErrNotFound
	cached := routedDocument("owner")
	require.NoError(t, f.cache.SetDocument(context.Background(), cached))

	result, err := f.svc.GetDocumentByUUID(context.Background(), actor, cached.UUID)
	require.NoError(t, err)
	assert.Equal(t, cached.UUID, result.Document.UUID)
}

func TestGetDocumentByUUID_CacheMissPopulates(t *testing.T) {
	f := newDocumentFixture("dep-a")
	actor := staffClaims("owner", "dep-a")

	doc := routedDocument("owner")
	f.store.documents[doc.UUID] = doc

	_, err := f.svc.GetDocumentByUUID(context.Background(), actor, doc.UUID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets)
}

func TestGetDocumentByUUID_Forbidden(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	f.store.documents[doc.UUID] = doc

	_, err := f.svc.GetDocumentByUUID(context.Background(), staffClaims("stranger", "dep-z"), doc.UUID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestGetDocumentByUUID_NotFound(t *testing.T) {
	f := newDocumentFixture("dep-a")

	_, err := f.svc.GetDocumentByUUID(context.Background(), staffClaims("owner", "dep-a"), "no-such-doc")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ===== Тесты публикации =====

func TestPublishDocument_Success(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	doc.Status = model.DocStatusApproved
	f.store.documents[doc.UUID] = doc

	token, err := f.svc.PublishDocument(context.Background(), staffClaims("owner", "dep-a"), doc.UUID)
	require.NoError(t, err)
	assert.Len(t, token, 32)
	assert.True(t, doc.IsPublic)

	// публичная карточка доступна по токену без авторизации
	result, err := f.svc.GetPublicDocument(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, doc.UUID, result.Document.UUID)

	// повторная публикация возвращает тот же токен
	again, err := f.svc.PublishDocument(context.Background(), staffClaims("owner", "dep-a"), doc.UUID)
	require.NoError(t, err)
	assert.Equal(t, token, again)
}

func TestPublishDocument_MissingAttachment(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	doc.Status = model.DocStatusApproved
	f.store.documents[doc.UUID] = doc
	f.store.files["f1"] = model.DocumentFile{UUID: "f1", DocumentUUID: doc.UUID, FilePath: "documents/" + doc.UUID + "/f1.pdf"}

	// клиент не загрузил файл по presigned URL — публиковать нечего
	f.s3.missing["documents/"+doc.UUID+"/f1.pdf"] = true

	_, err := f.svc.PublishDocument(context.Background(), staffClaims("owner", "dep-a"), doc.UUID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.False(t, doc.IsPublic)

	// после дозагрузки публикация проходит
	delete(f.s3.missing, "documents/"+doc.UUID+"/f1.pdf")
	token, err := f.svc.PublishDocument(context.Background(), staffClaims("owner", "dep-a"), doc.UUID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestPublishDocument_OnlyApproved(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	doc.Status = model.DocStatusInReview
	f.store.documents[doc.UUID] = doc

	_, err := f.svc.PublishDocument(context.Background(), staffClaims("owner", "dep-a"), doc.UUID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestPublishDocument_OnlyOwner(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	doc.Status = model.DocStatusApproved
	f.store.documents[doc.UUID] = doc

	_, err := f.svc.PublishDocument(context.Background(), staffClaims("stranger", "dep-a"), doc.UUID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// ===== Тесты удаления =====

func TestDeleteDocument_ByOwner(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	f.store.documents[doc.UUID] = doc
	f.store.files["f1"] = model.DocumentFile{UUID: "f1", DocumentUUID: doc.UUID, FilePath: "documents/" + doc.UUID + "/f1.pdf"}

	err := f.svc.DeleteDocument(context.Background(), staffClaims("owner", "dep-a"), doc.UUID)
	require.NoError(t, err)
	assert.Empty(t, f.store.documents)
	assert.Empty(t, f.store.files)
	assert.Contains(t, f.audit.actions, "document.delete")
}

func TestDeleteDocument_ApprovedKept(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	doc.Status = model.DocStatusApproved
	f.store.documents[doc.UUID] = doc

	err := f.svc.DeleteDocument(context.Background(), staffClaims("owner", "dep-a"), doc.UUID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Len(t, f.store.documents, 1)
}

func TestDeleteFile_OnlyWhileReturned(t *testing.T) {
	f := newDocumentFixture("dep-a")

	doc := routedDocument("owner")
	f.store.documents[doc.UUID] = doc
	f.store.files["f1"] = model.DocumentFile{UUID: "f1", DocumentUUID: doc.UUID}

	// вложения меняются только у возвращенного документа
	for _, status := range []model.DocumentStatus{model.DocStatusPending, model.DocStatusInReview, model.DocStatusApproved} {
		doc.Status = status
		err := f.svc.DeleteFile(context.Background(), staffClaims("owner", "dep-a"), "f1")
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	}

	doc.Status = model.DocStatusReturned
	err := f.svc.DeleteFile(context.Background(), staffClaims("owner", "dep-a"), "f1")
	require.NoError(t, err)
	assert.Empty(t, f.store.files)
}
