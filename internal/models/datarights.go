package models

import "time"

// Типы запросов субъекта данных и статусы их обработки.
const (
	DataRightsExport        = "export"
	DataRightsErasure       = "erasure"
	DataRightsRectification = "rectification"

	DataRightsStatusReceived   = "received"
	DataRightsStatusInProgress = "in_progress"
	DataRightsStatusCompleted  = "completed"
	DataRightsStatusRejected   = "rejected"
)

// Юрисдикции запросов. CO и BR получают срок 15 дней, остальные 30.
const (
	JurisdictionEU    = "EU"
	JurisdictionCO    = "CO"
	JurisdictionBR    = "BR"
	JurisdictionUS    = "US"
	JurisdictionMX    = "MX"
	JurisdictionOther = "OTHER"
)

// DataRightsRequest представляет запрос субъекта данных в схеме compliance.
// Срок ответа DeadlineAt выставляет триггер базы при вставке.
type DataRightsRequest struct {
	ID           string     `json:"id"`                     // Уникальный идентификатор запроса
	UserID       string     `json:"user_id"`                // Идентификатор субъекта данных
	RequestType  string     `json:"request_type"`           // export, erasure или rectification
	Jurisdiction string     `json:"jurisdiction"`           // Юрисдикция запроса
	Status       string     `json:"status"`                 // Текущий статус обработки
	Details      *string    `json:"details,omitempty"`      // Пояснение от субъекта данных
	ReceivedAt   time.Time  `json:"received_at"`            // Момент получения запроса
	DeadlineAt   time.Time  `json:"deadline_at"`            // Срок ответа по юрисдикции
	CompletedAt  *time.Time `json:"completed_at,omitempty"` // Момент завершения обработки
	CreatedAt    time.Time  `json:"created_at"`             // Момент создания записи
	UpdatedAt    time.Time  `json:"updated_at"`             // Момент последнего изменения
}

// DummyDataRights используется для приёма запроса субъекта данных из JSON.
type DummyDataRights struct {
	RequestType  string `json:"request_type" validate:"required,oneof=export erasure rectification"` // Тип запроса
	Jurisdiction string `json:"jurisdiction" validate:"required,oneof=EU CO BR US MX OTHER"`         // Юрисдикция
	Details      string `json:"details,omitempty" validate:"omitempty,max=4000"`                     // Пояснение
}
