package workflow

import (
	"fmt"
	"openpka/bizerror"
	"openpka/event"
	"openpka/idgen"
	"openpka/persistence"
	"openpka/session"
	"sort"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

var (
	definitionIdWorker = idgen.NewWorker()

	// keyed by definition id, definitions and their steps never change once created
	definitionCache = cache.New(10*time.Minute, 30*time.Minute)

	CreateDefinitionFunc     = createDefinitionAs
	FindActiveDefinitionFunc = findActiveDefinitionAs
)

func definitionKey(id types.ID) string {
	return "definition:" + id.String()
}

// FindActiveDefinition returns the definition new workflows of the entity type bind to.
// It fails with ErrDefinitionNotFound when the type is not configured.
// The active pointer is always read through db, only the immutable steps come from the cache.
func FindActiveDefinition(db *gorm.DB, entityType string) (*DefinitionDetail, error) {
	var def WorkflowDefinition
	if err := db.Where("entity_type = ? AND active = ?", entityType, true).
		Order("create_time DESC, id DESC").First(&def).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrDefinitionNotFound
		}
		return nil, err
	}
	if v, found := definitionCache.Get(definitionKey(def.ID)); found {
		detail := copyDefinition(v.(*DefinitionDetail))
		detail.WorkflowDefinition = def
		return detail, nil
	}
	detail, err := loadSteps(db, def)
	if err != nil {
		return nil, err
	}
	definitionCache.SetDefault(definitionKey(detail.ID), detail)
	return copyDefinition(detail), nil
}

// DetailDefinition loads a definition by id whether or not it is still active.
func DetailDefinition(db *gorm.DB, id types.ID) (*DefinitionDetail, error) {
	if v, found := definitionCache.Get(definitionKey(id)); found {
		return copyDefinition(v.(*DefinitionDetail)), nil
	}
	var def WorkflowDefinition
	if err := db.Where("id = ?", id).First(&def).Error; err != nil {
		return nil, err
	}
	detail, err := loadSteps(db, def)
	if err != nil {
		return nil, err
	}
	definitionCache.SetDefault(definitionKey(id), detail)
	return copyDefinition(detail), nil
}

// CreateDefinition stores a new definition and makes it the active one of its entity type.
// Steps must be numbered 1..N without gaps.
func CreateDefinition(tx *gorm.DB, c DefinitionCreation, ac *event.AuditContext) (*DefinitionDetail, error) {
	if !IsKnownEntityType(c.EntityType) {
		return nil, bizerror.ErrUnknownEntityType
	}
	steps := append([]StepCreation{}, c.Steps...)
	if err := checkStepOrders(steps); err != nil {
		return nil, err
	}

	if err := tx.Model(&WorkflowDefinition{}).Where("entity_type = ? AND active = ?", c.EntityType, true).
		Update("active", false).Error; err != nil {
		return nil, err
	}

	detail := DefinitionDetail{WorkflowDefinition: WorkflowDefinition{
		ID:         idgen.NextID(definitionIdWorker),
		EntityType: c.EntityType,
		Name:       c.Name,
		Active:     true,
		CreatorID:  ac.Actor.ID,
		CreateTime: time.Now().UTC(),
	}}
	if err := tx.Create(&detail.WorkflowDefinition).Error; err != nil {
		return nil, err
	}
	for _, s := range steps {
		step := WorkflowStep{
			ID:               idgen.NextID(definitionIdWorker),
			DefinitionID:     detail.ID,
			StepOrder:        s.StepOrder,
			StepName:         s.StepName,
			ApproverRole:     s.ApproverRole,
			ApproverOrgLevel: s.ApproverOrgLevel,
			TimeoutDays:      s.TimeoutDays,
		}
		if err := tx.Create(&step).Error; err != nil {
			return nil, err
		}
		detail.Steps = append(detail.Steps, step)
	}

	if _, err := event.CreateEvent(SourceTypeWorkflowDefinition, detail.ID, detail.Name, event.EventCategoryCreated,
		event.UpdatedProperties{{PropertyName: "EntityType", PropertyDesc: "Entity Type", NewValue: c.EntityType, NewValueDesc: c.EntityType}},
		nil, ac, tx); err != nil {
		return nil, err
	}
	return &detail, nil
}

func checkStepOrders(steps []StepCreation) error {
	if len(steps) == 0 {
		return &bizerror.ErrInvalidDefinition{Reason: "at least one step is required"}
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
	for i, s := range steps {
		if s.StepOrder != i+1 {
			return &bizerror.ErrInvalidDefinition{Reason: fmt.Sprintf("step orders must run from 1 to %d without gaps, found %d at position %d", len(steps), s.StepOrder, i+1)}
		}
	}
	return nil
}

func loadSteps(db *gorm.DB, def WorkflowDefinition) (*DefinitionDetail, error) {
	var steps []WorkflowStep
	if err := db.Where("definition_id = ?", def.ID).Order("step_order ASC").Find(&steps).Error; err != nil {
		return nil, err
	}
	return &DefinitionDetail{WorkflowDefinition: def, Steps: steps}, nil
}

func copyDefinition(d *DefinitionDetail) *DefinitionDetail {
	c := *d
	c.Steps = append([]WorkflowStep{}, d.Steps...)
	return &c
}

func createDefinitionAs(c DefinitionCreation, s *session.Session) (*DefinitionDetail, error) {
	var d *DefinitionDetail
	err := event.InSession(s, func(tx *gorm.DB, ac *event.AuditContext) error {
		var err error
		d, err = CreateDefinition(tx, c, ac)
		return err
	})
	return d, err
}

func findActiveDefinitionAs(entityType string, s *session.Session) (*DefinitionDetail, error) {
	return FindActiveDefinition(persistence.ActiveDataSourceManager.GormDB(s.Context), entityType)
}

// FlushDefinitionCache drops every cached definition, for tools switching databases.
func FlushDefinitionCache() {
	definitionCache.Flush()
}
