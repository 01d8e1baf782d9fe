package search

import (
	"encoding/json"
	"net/http"
	"openpka/authority"
	"openpka/bizerror"
	"openpka/client/es"
	"openpka/indices"
	"openpka/session"

	"github.com/gin-gonic/gin"
)

var (
	PathSearchOrgUnits = "/v1/search/org-units"

	SearchOrgUnitsFunc = SearchOrgUnits
)

type OrgUnitQuery struct {
	Q      string `form:"q" binding:"lte=255"`
	Type   string `form:"type"`
	Status string `form:"status"`
	Size   int    `form:"size" binding:"omitempty,min=1,max=1000"`
}

const defaultSearchSize = 50

// SearchOrgUnits matches q against unit names and codes, type and status filter exactly.
func SearchOrgUnits(q OrgUnitQuery, s *session.Session) ([]indices.OrgUnitDocument, error) {
	filters := make([]es.H, 0, 2)
	if q.Type != "" {
		filters = append(filters, es.H{"term": es.H{"type.keyword": q.Type}})
	}
	if q.Status != "" {
		filters = append(filters, es.H{"term": es.H{"status.keyword": q.Status}})
	}
	must := es.H{"match_all": es.H{}}
	if q.Q != "" {
		must = es.H{"multi_match": es.H{"query": q.Q, "fields": []string{"name^2", "code"}, "operator": "AND"}}
	}
	size := q.Size
	if size == 0 {
		size = defaultSearchSize
	}

	r, err := es.SearchFunc(s.Context, indices.OrgUnitIndexName, es.H{
		"size":  size,
		"query": es.H{"bool": es.H{"must": must, "filter": filters}},
	})
	if err != nil {
		return nil, err
	}
	docs := make([]indices.OrgUnitDocument, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := indices.OrgUnitDocument{}
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func RegisterSearchRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	r.GET(PathSearchOrgUnits, append(middleWares, handleSearchOrgUnits)...)
}

func handleSearchOrgUnits(c *gin.Context) {
	s := session.RequirePerm(c, authority.PermOrgRead)
	q := OrgUnitQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	docs, err := SearchOrgUnitsFunc(q, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, docs)
}
