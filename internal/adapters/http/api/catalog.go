// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/domain/catalog"
)

// CatalogDependencies defines the interface for catalog access.
type CatalogDependencies interface {
	Catalog() *catalog.Catalog
}

// CatalogHandler serves the static trait catalog to the rendering layer.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type catalogSection struct {
	Key                 string         `json:"key"`
	Title               string         `json:"title"`
	ReportingSeniorOnly bool           `json:"reporting_senior_only"`
	Traits              []catalogTrait `json:"traits"`
}

type catalogTrait struct {
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	Anchors catalog.Anchors `json:"anchors"`
}

type catalogResponse struct {
	Sections []catalogSection `json:"sections"`
}

// HandleGetCatalog handles GET /v1/catalog requests.
func (h *CatalogHandler) HandleGetCatalog(w http.ResponseWriter, r *http.Request) {
	var resp catalogResponse
	for _, sec := range h.deps.Catalog().Sections() {
		out := catalogSection{
			Key:                 sec.Key,
			Title:               sec.Title,
			ReportingSeniorOnly: sec.ReportingSeniorOnly,
		}
		for _, tr := range sec.Traits {
			out.Traits = append(out.Traits, catalogTrait{
				Key:     tr.Key,
				Name:    tr.Name,
				Anchors: tr.Anchors,
			})
		}
		resp.Sections = append(resp.Sections, out)
	}
	writeJSON(w, http.StatusOK, resp)
}
