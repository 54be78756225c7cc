package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/disambig"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/identifier"
)

// Request body limits.
const (
	maxRequestBodySize = 1 << 20 // 1 MB
	maxPageTitleLength = 10000
)

// checkDuplicatesRequest is the JSON request body for a duplicate check.
type checkDuplicatesRequest struct {
	Item *domain.Item `json:"item" validate:"required"`
}

// disambiguateRequest is the JSON request body for DOI disambiguation.
type disambiguateRequest struct {
	DOIs      []string `json:"dois" validate:"required,min=1,max=50,dive,required"`
	PageTitle string   `json:"pageTitle" validate:"required"`
}

// disambiguateResponse wraps the ranked results.
type disambiguateResponse struct {
	Results []disambig.Result `json:"results"`
	Count   int               `json:"count"`
}

// checkDuplicates handles POST /api/v1/duplicates/check. It runs every
// applicable search strategy against the submitted item and returns the
// merged, ranked candidate list.
func (s *Server) checkDuplicates(w http.ResponseWriter, r *http.Request) {
	var req checkDuplicatesRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	item := *req.Item
	item.Title = strings.TrimSpace(item.Title)
	if !hasSearchableSignal(item) {
		verr := domain.NewValidationError("item", "must carry a title or at least one identifier")
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}

	ctx, cancel := s.pipelineContext(r.Context())
	defer cancel()

	result := s.detector.Detect(ctx, item)
	writeJSON(w, http.StatusOK, result)
}

// disambiguateDOIs handles POST /api/v1/doi/disambiguate.
func (s *Server) disambiguateDOIs(w http.ResponseWriter, r *http.Request) {
	var req disambiguateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	req.PageTitle = strings.TrimSpace(req.PageTitle)
	if req.PageTitle == "" {
		writeError(w, http.StatusBadRequest, "pageTitle is required")
		return
	}
	if len(req.PageTitle) > maxPageTitleLength {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("pageTitle must be at most %d characters", maxPageTitleLength))
		return
	}

	ctx, cancel := s.pipelineContext(r.Context())
	defer cancel()

	results, err := s.disambiguator.Rank(ctx, req.DOIs, req.PageTitle)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, "metadata service is not available")
			return
		}
		s.logger.Error().Err(err).Msg("disambiguation failed")
		writeError(w, http.StatusInternalServerError, "disambiguation failed")
		return
	}

	writeJSON(w, http.StatusOK, disambiguateResponse{Results: results, Count: len(results)})
}

// decodeAndValidate reads a size-limited JSON body into dst and runs
// struct validation. It writes the error response itself and reports
// whether the handler should continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first field violation as a readable
// message.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
		case "min":
			return fmt.Sprintf("%s must have at least %s entries", strings.ToLower(fe.Field()), fe.Param())
		case "max":
			return fmt.Sprintf("%s must have at most %s entries", strings.ToLower(fe.Field()), fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
		}
	}
	return "invalid request"
}

// hasSearchableSignal reports whether at least one strategy could run
// against the item.
func hasSearchableSignal(item domain.Item) bool {
	set := identifier.ExtractSet(item)
	return set.Title != "" || set.DOI != "" || set.ISBN != "" || set.URL != "" ||
		set.PMID != "" || set.PMCID != "" || set.ArXivID != ""
}

// pipelineContext applies the configured request timeout, when set, to
// one detection or disambiguation pipeline.
func (s *Server) pipelineContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}
