package event

import (
	"openpka/idgen"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	idWorker = idgen.NewWorker()

	EventPersistCreateFunc = eventPersistCreate
)

func CreateEvent(sourceType string, sourceId types.ID, sourceDesc string, category EventCategory,
	updatedProperties []UpdatedProperty, updatedRelations []UpdatedRelation,
	ac *AuditContext, tx *gorm.DB) (*EventRecord, error) {

	if ac == nil {
		return nil, ErrAuditContextRequired
	}
	record := EventRecord{
		ID: idgen.NextID(idWorker),
		Event: Event{
			SourceType: sourceType,
			SourceId:   sourceId,
			SourceDesc: sourceDesc,

			EventCategory:     category,
			UpdatedProperties: updatedProperties,
			UpdatedRelations:  updatedRelations,
			Metadata:          ac.Metadata,

			CreatorId:   ac.Actor.ID,
			CreatorName: ac.Actor.Name,
			RequestId:   ac.RequestID,
		},
		Synced:    false,
		Timestamp: time.Now().UTC(),
	}
	if err := EventPersistCreateFunc(&record, tx); err != nil {
		return nil, err
	}
	collect(tx, record)
	return &record, nil
}

func QueryEvents(sourceType string, sourceId types.ID, db *gorm.DB) ([]EventRecord, error) {
	records := []EventRecord{}
	if err := db.Where("source_type = ? AND source_id = ?", sourceType, sourceId).
		Order("timestamp ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func eventPersistCreate(record *EventRecord, db *gorm.DB) error {
	return db.Create(record).Error
}
