package handler

import (
	"errors"
	"log"
	"net/http"

	"document-routing-server/internal/apperrors"
	"document-routing-server/internal/util"
)

// handleServiceError переводит ошибки сервисного слоя в HTTP-статусы
func handleServiceError(w http.ResponseWriter, err error) {
	log.Println(err)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		util.HandleError(w, "документ не найден", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrUnauthorized):
		util.HandleError(w, "доступ запрещён", http.StatusForbidden)
	case errors.Is(err, apperrors.ErrValidationFailed):
		util.HandleError(w, "неверные параметры запроса", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrNotCurrentHolder):
		util.HandleError(w, "документ находится не у вас", http.StatusConflict)
	case errors.Is(err, apperrors.ErrNotCurrentRecipient):
		util.HandleError(w, "документ адресован не вам", http.StatusConflict)
	case errors.Is(err, apperrors.ErrNotAPendingRecipient):
		util.HandleError(w, "ваш отдел не входит в список рассылки", http.StatusConflict)
	case errors.Is(err, apperrors.ErrAlreadyReceivedByYou):
		util.HandleError(w, "вы уже подтвердили получение этого документа", http.StatusConflict)
	case errors.Is(err, apperrors.ErrAlreadyReceivedByDepartment):
		util.HandleError(w, "ваш отдел уже подтвердил получение этого документа", http.StatusConflict)
	case errors.Is(err, apperrors.ErrAlreadyReceived):
		util.HandleError(w, "получение документа уже подтверждено", http.StatusConflict)
	case errors.Is(err, apperrors.ErrDuplicateOrderNumber):
		util.HandleError(w, "номер приказа уже занят", http.StatusConflict)
	case errors.Is(err, apperrors.ErrGenerationExhausted):
		util.HandleError(w, "не удалось выдать номер приказа, повторите попытку", http.StatusServiceUnavailable)
	default:
		util.HandleError(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}
