package apperrors

import "errors"

// Ожидаемые (восстановимые) ошибки маршрутизации документов.
// Хендлеры переводят их в HTTP-статусы, сервисы возвращают как есть.

var ErrValidationFailed = errors.New("validation failed")

var ErrNotCurrentHolder = errors.New("actor does not hold the active routing entry")

var ErrNotCurrentRecipient = errors.New("only the latest recipient can receive the document")

var ErrNotAPendingRecipient = errors.New("department is not a pending recipient of this document")

var ErrAlreadyReceived = errors.New("document already received")

var ErrAlreadyReceivedByYou = errors.New("document already received by you")

var ErrAlreadyReceivedByDepartment = errors.New("document already received by another user of your department")

var ErrDuplicateOrderNumber = errors.New("order number already taken for this department and day")

var ErrGenerationExhausted = errors.New("order number generation retry budget exhausted")

var ErrUnauthorized = errors.New("no access")

var ErrNotFound = errors.New("not found")
