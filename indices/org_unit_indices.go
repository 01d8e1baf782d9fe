package indices

import (
	"context"
	"fmt"
	"openpka/client/es"
	"openpka/domain/hierarchy"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var OrgUnitIndexName = "org-units"

type OrgUnitDocument struct {
	ID       types.ID  `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Status   string    `json:"status"`
	ParentID *types.ID `json:"parentId"`

	UpdateTime time.Time `json:"updateTime"`
}

func NewOrgUnitDocument(u hierarchy.OrgUnit) OrgUnitDocument {
	return OrgUnitDocument{ID: u.ID, Code: u.Code, Name: u.Name, Type: u.Type, Status: u.Status,
		ParentID: u.ParentID, UpdateTime: u.UpdateTime}
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

// IndexOrgUnits indexes every unit, failures are collected per unit id.
func IndexOrgUnits(ctx context.Context, units []hierarchy.OrgUnit) error {
	errs := BatchActionError{}
	for _, u := range units {
		if err := es.IndexFunc(ctx, OrgUnitIndexName, u.ID, NewOrgUnitDocument(u)); err != nil {
			errs[u.ID] = err
			logrus.Warnf("index org unit %d %s: %v", u.ID, u.Code, err)
		} else {
			logrus.Debugf("index org unit %d %s successfully", u.ID, u.Code)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
