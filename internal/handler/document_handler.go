package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"document-routing-server/config"
	requestresponse "document-routing-server/internal/model/requestresponse"
	"document-routing-server/internal/ports"
	"document-routing-server/internal/security"
	"document-routing-server/internal/util"
	"github.com/go-chi/chi/v5"
)

type DocumentHandler struct {
	ports.DocumentService
	cfg *config.TTL
}

func NewDocumentHandler(documentService ports.DocumentService, cfg *config.TTL) *DocumentHandler {
	return &DocumentHandler{documentService, cfg}
}

// CreateDocument godoc
// @Summary Регистрация документа
// @Description Регистрирует документ, выдает номер приказа и открывает маршрут.
// Файлы загружаются отдельно по pre-signed URL из ответа.
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body requestresponse.CreateDocumentRequest true "Параметры документа"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 201 {object} requestresponse.CreateDocumentResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Неверные параметры"
// @Failure 401 {object} requestresponse.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} requestresponse.ErrorResponse "Номер приказа занят"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/docs [post]
// @Security BearerAuth
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	var req requestresponse.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	output, err := h.DocumentService.CreateDocument(ctx, claims, req.ToInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	uploads := make([]requestresponse.UploadSlotResponse, 0, len(output.Uploads))
	for _, slot := range output.Uploads {
		uploads = append(uploads, requestresponse.UploadSlotResponse{
			FileUUID: slot.File.UUID,
			PutURL:   slot.PutURL,
		})
	}

	resp := requestresponse.CreateDocumentResponse{
		Document: requestresponse.DocumentResponseFromModel(output.Document),
		Uploads:  uploads,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// GetDocument godoc
// @Summary Карточка документа
// @Description Возвращает документ, маршрутную цепочку и вложения со ссылками на скачивание.
// @Tags Documents
// @Accept json
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.GetDocumentResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id} [get]
// @Security BearerAuth
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docUUID := chi.URLParam(r, "doc_id")
	if docUUID == "" {
		util.HandleError(w, "ID документа обязателен", http.StatusBadRequest)
		return
	}

	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	result, err := h.DocumentService.GetDocumentByUUID(r.Context(), claims, docUUID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := requestresponse.GetDocumentResponseFromResult(result, strconv.Itoa(h.cfg.S3AndRedis))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetPublicDocument godoc
// @Summary Публичная карточка документа
// @Description Возвращает опубликованный документ по токену, авторизация не требуется.
// @Tags Public Documents
// @Accept json
// @Produce json
// @Param token path string true "Токен публичной ссылки"
// @Success 200 {object} requestresponse.GetDocumentResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /public/docs/{token} [get]
func (h *DocumentHandler) GetPublicDocument(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		util.HandleError(w, "токен документа обязателен", http.StatusBadRequest)
		return
	}

	result, err := h.DocumentService.GetPublicDocument(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := requestresponse.GetDocumentResponseFromResult(result, strconv.Itoa(h.cfg.S3AndRedis))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListDocuments godoc
// @Summary Список документов
// @Description Возвращает документы, доступные пользователю: свои и прошедшие через его отдел.
// @Tags Documents
// @Produce json
// @Param cursor query string false "Курсор пагинации из предыдущего ответа"
// @Param limit query int false "Лимит документов на странице" default(20) minimum(1) maximum(100)
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ListDocumentsResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs [get]
// @Security BearerAuth
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	cursor := r.URL.Query().Get("cursor")

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			util.HandleError(w, "неверное значение limit", http.StatusBadRequest)
			return
		}
		if parsed > 100 {
			limit = 100
		} else {
			limit = parsed
		}
	}

	docs, nextCursor, err := h.DocumentService.ListDocuments(r.Context(), claims, cursor, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := requestresponse.ListDocumentsResponse{
		NextCursor: nextCursor,
		Count:      len(docs),
	}
	resp.Data.Docs = make([]requestresponse.DocumentResponse, 0, len(docs))
	for i := range docs {
		resp.Data.Docs = append(resp.Data.Docs, requestresponse.DocumentResponseFromModel(&docs[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// PublishDocument godoc
// @Summary Публикация документа
// @Description Включает публичный доступ к согласованному документу и возвращает токен ссылки.
// @Tags Documents
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.PublishDocumentResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Документ не согласован"
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id}/publish [post]
// @Security BearerAuth
func (h *DocumentHandler) PublishDocument(w http.ResponseWriter, r *http.Request) {
	docUUID := chi.URLParam(r, "doc_id")
	if docUUID == "" {
		util.HandleError(w, "ID документа обязателен", http.StatusBadRequest)
		return
	}

	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	token, err := h.DocumentService.PublishDocument(r.Context(), claims, docUUID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := requestresponse.PublishDocumentResponse{
		Token:     token,
		PublicURL: fmt.Sprintf("/public/docs/%s", token),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// DeleteDocument godoc
// @Summary Удаление документа
// @Description Удаляет документ вместе с маршрутом и вложениями. Доступно только автору,
// согласованные документы удалению не подлежат.
// @Tags Documents
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id} [delete]
// @Security BearerAuth
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docUUID := chi.URLParam(r, "doc_id")
	if docUUID == "" {
		util.HandleError(w, "ID документа обязателен", http.StatusBadRequest)
		return
	}

	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	if err := h.DocumentService.DeleteDocument(r.Context(), claims, docUUID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "документ удален"})
}

// DeleteFile godoc
// @Summary Удаление вложения
// @Description Удаляет вложение документа. Доступно автору, пока документ не ушел по маршруту.
// @Tags Documents
// @Produce json
// @Param file_id path string true "UUID файла"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files/{file_id} [delete]
// @Security BearerAuth
func (h *DocumentHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileUUID := chi.URLParam(r, "file_id")
	if fileUUID == "" {
		util.HandleError(w, "ID файла обязателен", http.StatusBadRequest)
		return
	}

	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	if err := h.DocumentService.DeleteFile(r.Context(), claims, fileUUID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "файл удален"})
}
