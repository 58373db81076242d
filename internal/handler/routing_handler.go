package handler

import (
	"encoding/json"
	"net/http"

	"document-routing-server/internal/model"
	requestresponse "document-routing-server/internal/model/requestresponse"
	"document-routing-server/internal/ports"
	"document-routing-server/internal/security"
	"document-routing-server/internal/util"
	"github.com/go-chi/chi/v5"
)

type RoutingHandler struct {
	ports.RoutingService
}

func NewRoutingHandler(routingService ports.RoutingService) *RoutingHandler {
	return &RoutingHandler{routingService}
}

// Forward godoc
// @Summary Передача документа
// @Description Текущий держатель передает документ следующему отделу или пользователю.
// К передаче можно приложить сопроводительные файлы, ответ содержит URL их загрузки.
// @Tags Routing
// @Accept json
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param body body requestresponse.ForwardRequest true "Адресат и комментарий"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ForwardResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Документ находится не у вас"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id}/forward [post]
// @Security BearerAuth
func (h *RoutingHandler) Forward(w http.ResponseWriter, r *http.Request) {
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

	var req requestresponse.ForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	files := make([]model.FileInput, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, model.FileInput{
			OriginalFilename: f.OriginalFilename,
			MimeType:         f.MimeType,
			SizeBytes:        f.SizeBytes,
		})
	}

	slots, err := h.RoutingService.Forward(r.Context(), claims, docUUID, req.Target(), req.Comments, files)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := requestresponse.ForwardResponse{}
	for _, slot := range slots {
		resp.Uploads = append(resp.Uploads, requestresponse.UploadSlotResponse{
			FileUUID: slot.File.UUID,
			PutURL:   slot.PutURL,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Respond godoc
// @Summary Решение по документу
// @Description Фиксирует решение: approved, rejected или returned. Возврат (returned)
// требует комментария и доступен без проверки держателя.
// @Tags Routing
// @Accept json
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param body body requestresponse.RespondRequest true "Решение и комментарий"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse "Недостаточно прав для решения"
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id}/respond [post]
// @Security BearerAuth
func (h *RoutingHandler) Respond(w http.ResponseWriter, r *http.Request) {
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

	var req requestresponse.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	if err := h.RoutingService.Respond(r.Context(), claims, docUUID, model.RecipientStatus(req.Decision), req.Comments); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "решение зафиксировано"})
}

// Receive godoc
// @Summary Подтверждение получения
// @Description Подтверждает получение документа текущим получателем через кабинет.
// @Tags Routing
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Получение уже подтверждено"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id}/receive [post]
// @Security BearerAuth
func (h *RoutingHandler) Receive(w http.ResponseWriter, r *http.Request) {
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

	if err := h.RoutingService.Receive(r.Context(), claims, docUUID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "получение подтверждено"})
}

// ReceiveByBarcode godoc
// @Summary Подтверждение получения по штрих-коду
// @Description Находит документ по штрих-коду (номер приказа без разделителей)
// и подтверждает его получение. Код уникален только в пределах отдел+день,
// берется самый свежий документ.
// @Tags Routing
// @Accept json
// @Produce json
// @Param body body requestresponse.BarcodeReceiveRequest true "Штрих-код"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.BarcodeReceiveResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse "Документ с таким кодом не найден"
// @Failure 409 {object} requestresponse.ErrorResponse "Получение уже подтверждено"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/receive/barcode [post]
// @Security BearerAuth
func (h *RoutingHandler) ReceiveByBarcode(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	var req requestresponse.BarcodeReceiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	document, err := h.RoutingService.ReceiveByBarcode(r.Context(), claims, req.Barcode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := requestresponse.BarcodeReceiveResponse{
		Document: requestresponse.DocumentResponseFromModel(document),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Resend godoc
// @Summary Повторная отправка
// @Description Автор отправляет возвращенный документ заново, номер приказа сохраняется.
// @Tags Routing
// @Accept json
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param body body requestresponse.ResendRequest true "Адресат и комментарий"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Документ не возвращен"
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id}/resend [post]
// @Security BearerAuth
func (h *RoutingHandler) Resend(w http.ResponseWriter, r *http.Request) {
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

	var req requestresponse.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	if err := h.RoutingService.Resend(r.Context(), claims, docUUID, req.Target(), req.Comments); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "документ отправлен повторно"})
}

// Cancel godoc
// @Summary Отзыв документа
// @Description Автор снимает документ с маршрута. Согласованные документы отозвать нельзя.
// @Tags Routing
// @Produce json
// @Param doc_id path string true "UUID документа"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/docs/{doc_id}/cancel [post]
// @Security BearerAuth
func (h *RoutingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
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

	if err := h.RoutingService.Cancel(r.Context(), claims, docUUID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requestresponse.SuccessResponse{Message: "документ снят с маршрута"})
}
