package server

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"go.uber.org/zap"
)

type CreateCaseRequest struct {
	ReceivedAt        string        `json:"receivedAt"`
	AssigneeUserID    *snowflake.ID `json:"assigneeUserId"`
	Status            string        `json:"status" binding:"omitempty,case_status"`
	CustomerName      string        `json:"customerName" binding:"max=200"`
	CustomerContact   string        `json:"customerContact" binding:"max=200"`
	CustomerNote      string        `json:"customerNote" binding:"max=4000"`
	Manufacturer      string        `json:"manufacturer" binding:"max=200"`
	ModelName         string        `json:"modelName" binding:"max=200"`
	ModelNumber       string        `json:"modelNumber" binding:"max=200"`
	BoardNumber       string        `json:"boardNumber" binding:"max=200"`
	Symptom           string        `json:"symptom" binding:"max=4000"`
	InitialHypothesis string        `json:"initialHypothesis" binding:"max=4000"`
	ActionsTaken      string        `json:"actionsTaken" binding:"max=4000"`
	Measurements      string        `json:"measurements" binding:"max=4000"`
	NotDone           string        `json:"notDone" binding:"max=4000"`
	NotDoneReason     string        `json:"notDoneReason" binding:"max=4000"`
	Outcome           string        `json:"outcome" binding:"omitempty,case_outcome"`
	FinalDecision     string        `json:"finalDecision" binding:"omitempty,final_decision"`
	ShareAnonymously  bool          `json:"shareAnonymously"`
	ShareNote         string        `json:"shareNote" binding:"max=4000"`
}

type UpdateCaseRequest struct {
	ReceivedAt        *string       `json:"receivedAt"`
	AssigneeUserID    *snowflake.ID `json:"assigneeUserId"`
	Status            *string       `json:"status" binding:"omitempty,case_status"`
	CustomerName      *string       `json:"customerName" binding:"omitempty,max=200"`
	CustomerContact   *string       `json:"customerContact" binding:"omitempty,max=200"`
	CustomerNote      *string       `json:"customerNote" binding:"omitempty,max=4000"`
	Manufacturer      *string       `json:"manufacturer" binding:"omitempty,max=200"`
	ModelName         *string       `json:"modelName" binding:"omitempty,max=200"`
	ModelNumber       *string       `json:"modelNumber" binding:"omitempty,max=200"`
	BoardNumber       *string       `json:"boardNumber" binding:"omitempty,max=200"`
	Symptom           *string       `json:"symptom" binding:"omitempty,max=4000"`
	InitialHypothesis *string       `json:"initialHypothesis" binding:"omitempty,max=4000"`
	ActionsTaken      *string       `json:"actionsTaken" binding:"omitempty,max=4000"`
	Measurements      *string       `json:"measurements" binding:"omitempty,max=4000"`
	NotDone           *string       `json:"notDone" binding:"omitempty,max=4000"`
	NotDoneReason     *string       `json:"notDoneReason" binding:"omitempty,max=4000"`
	Outcome           *string       `json:"outcome" binding:"omitempty,case_outcome"`
	FinalDecision     *string       `json:"finalDecision" binding:"omitempty,final_decision"`
	ShareAnonymously  *bool         `json:"shareAnonymously"`
	ShareNote         *string       `json:"shareNote" binding:"omitempty,max=4000"`
}

// changedFields lists the JSON names of the fields present in the request.
func (r UpdateCaseRequest) changedFields() []string {
	present := []struct {
		name string
		set  bool
	}{
		{"receivedAt", r.ReceivedAt != nil},
		{"assigneeUserId", r.AssigneeUserID != nil},
		{"status", r.Status != nil},
		{"customerName", r.CustomerName != nil},
		{"customerContact", r.CustomerContact != nil},
		{"customerNote", r.CustomerNote != nil},
		{"manufacturer", r.Manufacturer != nil},
		{"modelName", r.ModelName != nil},
		{"modelNumber", r.ModelNumber != nil},
		{"boardNumber", r.BoardNumber != nil},
		{"symptom", r.Symptom != nil},
		{"initialHypothesis", r.InitialHypothesis != nil},
		{"actionsTaken", r.ActionsTaken != nil},
		{"measurements", r.Measurements != nil},
		{"notDone", r.NotDone != nil},
		{"notDoneReason", r.NotDoneReason != nil},
		{"outcome", r.Outcome != nil},
		{"finalDecision", r.FinalDecision != nil},
		{"shareAnonymously", r.ShareAnonymously != nil},
		{"shareNote", r.ShareNote != nil},
	}
	fields := make([]string, 0, len(present))
	for _, f := range present {
		if f.set {
			fields = append(fields, f.name)
		}
	}
	return fields
}

type UpdateStatusHistoryRequest struct {
	Status string `json:"status" binding:"required,case_status"`
}

type listCasesResponse struct {
	Cases      []casedomain.CaseView     `json:"cases"`
	Thresholds map[casedomain.Status]int `json:"thresholds"`
	Total      int                       `json:"total"`
}

func (s *Server) ListCases(c *gin.Context) {
	filter, err := listFilterFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.caseSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": listCasesResponse{
		Cases:      result.Cases,
		Thresholds: result.Thresholds,
		Total:      len(result.Cases),
	}})
}

func (s *Server) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	detail, err := s.caseSvc.Create(c.Request.Context(), casedomain.CreateCaseRequest{
		ReceivedAt:        req.ReceivedAt,
		AssigneeUserID:    req.AssigneeUserID,
		Status:            req.Status,
		CustomerName:      req.CustomerName,
		CustomerContact:   req.CustomerContact,
		CustomerNote:      req.CustomerNote,
		Manufacturer:      req.Manufacturer,
		ModelName:         req.ModelName,
		ModelNumber:       req.ModelNumber,
		BoardNumber:       req.BoardNumber,
		Symptom:           req.Symptom,
		InitialHypothesis: req.InitialHypothesis,
		ActionsTaken:      req.ActionsTaken,
		Measurements:      req.Measurements,
		NotDone:           req.NotDone,
		NotDoneReason:     req.NotDoneReason,
		Outcome:           req.Outcome,
		FinalDecision:     req.FinalDecision,
		ShareAnonymously:  req.ShareAnonymously,
		ShareNote:         req.ShareNote,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionCaseCreated, auditdomain.TargetCase, detail.ID, map[string]any{
		"status": detail.Status,
	})
	c.JSON(http.StatusCreated, gin.H{"data": detail})
}

func (s *Server) GetCase(c *gin.Context) {
	detail, err := s.caseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) UpdateCase(c *gin.Context) {
	var req UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	detail, err := s.caseSvc.Update(c.Request.Context(), c.Param("id"), casedomain.UpdateCaseRequest{
		ReceivedAt:        req.ReceivedAt,
		AssigneeUserID:    req.AssigneeUserID,
		Status:            req.Status,
		CustomerName:      req.CustomerName,
		CustomerContact:   req.CustomerContact,
		CustomerNote:      req.CustomerNote,
		Manufacturer:      req.Manufacturer,
		ModelName:         req.ModelName,
		ModelNumber:       req.ModelNumber,
		BoardNumber:       req.BoardNumber,
		Symptom:           req.Symptom,
		InitialHypothesis: req.InitialHypothesis,
		ActionsTaken:      req.ActionsTaken,
		Measurements:      req.Measurements,
		NotDone:           req.NotDone,
		NotDoneReason:     req.NotDoneReason,
		Outcome:           req.Outcome,
		FinalDecision:     req.FinalDecision,
		ShareAnonymously:  req.ShareAnonymously,
		ShareNote:         req.ShareNote,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionCaseUpdated, auditdomain.TargetCase, detail.ID, map[string]any{
		"fields": req.changedFields(),
	})
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) DeleteCase(c *gin.Context) {
	if err := s.caseSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionCaseDeleted, auditdomain.TargetCase, c.Param("id"), nil)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}

func (s *Server) ShareExport(c *gin.Context) {
	payload, err := s.caseSvc.ShareExport(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

func (s *Server) CaseSheet(c *gin.Context) {
	detail, err := s.caseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pdf, err := s.sheets.Render(c.Request.Context(), detail)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="case-%s.pdf"`, detail.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (s *Server) ExportCasesCSV(c *gin.Context) {
	filter, err := listFilterFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.caseSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("cases-%s.csv", s.clock.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(casedomain.CSVHeader); err != nil {
		s.log.Warn("csv export aborted", zap.Error(err))
		return
	}
	for _, view := range result.Cases {
		if err := w.Write(casedomain.CSVRecord(view)); err != nil {
			s.log.Warn("csv export aborted", zap.Error(err))
			return
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.log.Warn("csv export flush failed", zap.Error(err))
	}
}

func (s *Server) UpdateStatusHistory(c *gin.Context) {
	historyID, err := parseSnowflakeID(c.Param("historyId"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req UpdateStatusHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	entry, err := s.caseSvc.UpdateHistory(c.Request.Context(), c.Param("id"), historyID, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionStatusHistoryUpdated, auditdomain.TargetStatusHistory, historyID.String(), map[string]any{
		"caseId": c.Param("id"),
		"status": req.Status,
	})
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) DeleteStatusHistory(c *gin.Context) {
	historyID, err := parseSnowflakeID(c.Param("historyId"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.caseSvc.DeleteHistory(c.Request.Context(), c.Param("id"), historyID); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionStatusHistoryDeleted, auditdomain.TargetStatusHistory, historyID.String(), map[string]any{
		"caseId": c.Param("id"),
	})
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}
