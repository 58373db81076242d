package service

import (
	"document-routing-server/internal/model"
	"document-routing-server/internal/security"
)

// ChainState — агрегированное состояние цепочки получателей
type ChainState string

const (
	ChainUnsent           ChainState = "unsent"             // звеньев нет
	ChainAwaitingAction   ChainState = "awaiting_action"    // есть активное звено
	ChainInTerminalReview ChainState = "in_terminal_review" // активное звено у финального отдела
	ChainClosed           ChainState = "closed"             // все звенья закрыты решением
	ChainReturned         ChainState = "returned"           // последнее звено возвращено автору
)

func DeriveChainState(entries []model.DocumentRecipient) ChainState {
	if len(entries) == 0 {
		return ChainUnsent
	}

	if active := ActiveEntry(entries); active != nil {
		if active.FinalRecipientDepartmentID != nil && active.DepartmentID != nil &&
			*active.FinalRecipientDepartmentID == *active.DepartmentID {
			return ChainInTerminalReview
		}
		return ChainAwaitingAction
	}

	if latest := LatestEntry(entries); latest != nil && latest.Status == model.RecipientReturned {
		return ChainReturned
	}
	return ChainClosed
}

// ActiveEntry : единственное активное звено цепочки, nil если цепочка закрыта
func ActiveEntry(entries []model.DocumentRecipient) *model.DocumentRecipient {
	for i := range entries {
		if entries[i].IsActive {
			return &entries[i]
		}
	}
	return nil
}

// ActiveEntryFor : активное звено, адресованное актору. У рассылок for_info
// активных звеньев несколько (по одному на отдел), поэтому искать нужно
// именно свое, а не первое попавшееся.
func ActiveEntryFor(entries []model.DocumentRecipient, actor *security.Claims) *model.DocumentRecipient {
	for i := range entries {
		if entries[i].IsActive && EntryMatchesActor(&entries[i], actor) {
			return &entries[i]
		}
	}
	return nil
}

// LatestEntry : звено с максимальным sequence
func LatestEntry(entries []model.DocumentRecipient) *model.DocumentRecipient {
	var latest *model.DocumentRecipient
	for i := range entries {
		if latest == nil || entries[i].Sequence > latest.Sequence {
			latest = &entries[i]
		}
	}
	return latest
}

func MaxSequence(entries []model.DocumentRecipient) int {
	if latest := LatestEntry(entries); latest != nil {
		return latest.Sequence
	}
	return 0
}

// EntryMatchesActor : звено адресовано лично пользователю либо его отделу
func EntryMatchesActor(entry *model.DocumentRecipient, actor *security.Claims) bool {
	if entry.UserUUID != nil && *entry.UserUUID == actor.UserUUID {
		return true
	}
	return entry.DepartmentID != nil && *entry.DepartmentID == actor.DepartmentID
}

// CanView : автор и все отделы, когда-либо попавшие в цепочку
func CanView(document *model.Document, entries []model.DocumentRecipient, actor *security.Claims) bool {
	if document.OwnerUUID == actor.UserUUID {
		return true
	}
	if document.DepartmentID == actor.DepartmentID {
		return true
	}
	for i := range entries {
		if EntryMatchesActor(&entries[i], actor) {
			return true
		}
	}
	return false
}

// CanRespond : решение принимает тот, кому адресовано последнее звено.
// Статус approved не закрывает цепочку: промежуточное согласование оставляет
// документ доступным для дальнейших решений, rejected и returned — нет.
func CanRespond(entries []model.DocumentRecipient, actor *security.Claims) bool {
	latest := LatestEntry(entries)
	if latest == nil || !EntryMatchesActor(latest, actor) {
		return false
	}
	return respondableStatus(latest.Status)
}

// CanDecide : допуск к Respond. Кроме прямого адресата решение может принять
// финальный отдел, даже когда документ лежит у промежуточного — последнее
// звено закрывается независимо от того, кто авторизовал решение.
func CanDecide(entries []model.DocumentRecipient, actor *security.Claims) bool {
	latest := LatestEntry(entries)
	if latest == nil {
		return false
	}
	matches := EntryMatchesActor(latest, actor) ||
		(latest.FinalRecipientDepartmentID != nil && *latest.FinalRecipientDepartmentID == actor.DepartmentID)
	return matches && respondableStatus(latest.Status)
}

func respondableStatus(status model.RecipientStatus) bool {
	switch status {
	case model.RecipientPending, model.RecipientForwarded, model.RecipientReceived, model.RecipientApproved:
		return true
	}
	return false
}

// IsFinalApprover : звено находится у финального отдела и роль позволяет
// подписывать. Рядовой сотрудник финального отдела может только передать
// документ дальше внутри отдела.
func IsFinalApprover(entry *model.DocumentRecipient, actor *security.Claims) bool {
	if entry.FinalRecipientDepartmentID == nil {
		return false
	}
	return *entry.FinalRecipientDepartmentID == actor.DepartmentID && actor.Elevated()
}
