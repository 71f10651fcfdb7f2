package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/pto-workflow/internal/application/authz"
	"github.com/garyjia/pto-workflow/internal/application/dispatcher"
	"github.com/garyjia/pto-workflow/internal/application/port"
	"github.com/garyjia/pto-workflow/internal/application/projection"
	"github.com/garyjia/pto-workflow/internal/application/workflow"
	"github.com/garyjia/pto-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
	"github.com/garyjia/pto-workflow/pkg/utils"
)

// Version is reported by the health check
var Version = "dev"

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflow    *workflow.Service
	projections *projection.Builder
	members     port.MembershipDirectory
	dispatcher  dispatcher.Dispatcher
	logger      *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger *zap.Logger) *Handlers {
	return &Handlers{
		workflow:    services.Workflow,
		projections: services.Projections,
		members:     services.Members,
		dispatcher:  services.Dispatcher,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Intents   *dispatcher.Stats `json:"intents,omitempty"`
}

// CreateDocumentRequest is the body of POST /api/documents
type CreateDocumentRequest struct {
	ID           string  `json:"id" binding:"required"`
	DocumentType string  `json:"document_type" binding:"required"`
	ProjectID    string  `json:"project_id" binding:"required"`
	LocationID   *string `json:"location_id"`
	Comment      *string `json:"comment"`
}

// TransitionRequest is the body of POST /api/documents/:id/transitions
type TransitionRequest struct {
	Action  string  `json:"action" binding:"required"`
	Comment *string `json:"comment"`
}

// TransitionResponse describes a recorded transition
type TransitionResponse struct {
	TransitionID   string          `json:"transition_id"`
	SequenceNumber int64           `json:"sequence_number"`
	FromStatus     domainwf.Status `json:"from_status"`
	ToStatus       domainwf.Status `json:"to_status"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// CreateDocumentResponse is the result of a CREATE
type CreateDocumentResponse struct {
	Document   *entity.Document   `json:"document"`
	Transition TransitionResponse `json:"transition"`
}

// SetMemberRequest is the body of PUT /api/projects/:projectId/members/:userId
type SetMemberRequest struct {
	ProjectRole string `json:"project_role" binding:"required"`
	CanSign     bool   `json:"can_sign"`
}

// ListDocumentsRequest represents query parameters for listing documents
type ListDocumentsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func toTransitionResponse(tr *entity.Transition) TransitionResponse {
	return TransitionResponse{
		TransitionID:   tr.ID,
		SequenceNumber: tr.SequenceNumber,
		FromStatus:     tr.FromStatus,
		ToStatus:       tr.ToStatus,
		OccurredAt:     tr.OccurredAt,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}
	if h.dispatcher != nil {
		stats := h.dispatcher.Stats()
		response.Intents = &stats
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateDocument handles POST /api/documents
func (h *Handlers) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := validateIDs("document id", req.ID, "project id", req.ProjectID); err != nil {
		h.respondError(c, err)
		return
	}
	if req.LocationID != nil {
		if err := validateIDs("location id", *req.LocationID); err != nil {
			h.respondError(c, err)
			return
		}
	}
	comment, err := utils.NormalizeComment(req.Comment)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	doc, result, err := h.workflow.CreateDocument(c.Request.Context(), workflow.NewDocument{
		ID:           req.ID,
		DocumentType: utils.SanitizeString(req.DocumentType),
		ProjectID:    req.ProjectID,
		LocationID:   req.LocationID,
	}, currentUser(c), comment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: CreateDocumentResponse{
			Document:   doc,
			Transition: toTransitionResponse(result.Transition),
		},
	})
}

// RequestTransition handles POST /api/documents/:id/transitions
func (h *Handlers) RequestTransition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	action, err := domainwf.ParseAction(req.Action)
	if err != nil {
		h.respondError(c, err)
		return
	}
	comment, err := utils.NormalizeComment(req.Comment)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	result, err := h.workflow.RequestTransition(c.Request.Context(), workflow.Request{
		DocumentID:  c.Param("id"),
		Action:      action,
		PrincipalID: currentUser(c),
		Comment:     comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toTransitionResponse(result.Transition),
	})
}

// GetDocument handles GET /api/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	view, ok := h.readableDocument(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// GetStatus handles GET /api/documents/:id/status
func (h *Handlers) GetStatus(c *gin.Context) {
	view, ok := h.readableDocument(c)
	if !ok {
		return
	}

	status, err := h.projections.CurrentStatus(c.Request.Context(), view.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"document_id": view.ID, "status": status},
	})
}

// GetTimeline handles GET /api/documents/:id/timeline
func (h *Handlers) GetTimeline(c *gin.Context) {
	view, ok := h.readableDocument(c)
	if !ok {
		return
	}

	timeline, err := h.projections.Timeline(c.Request.Context(), view.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: timeline})
}

// GetActions handles GET /api/documents/:id/actions
func (h *Handlers) GetActions(c *gin.Context) {
	actions, err := h.workflow.AvailableActions(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"document_id": c.Param("id"), "actions": actions},
	})
}

// ListProjectDocuments handles GET /api/projects/:projectId/documents
func (h *Handlers) ListProjectDocuments(c *gin.Context) {
	projectID := c.Param("projectId")
	if _, err := h.requireMember(c, projectID); err != nil {
		h.respondError(c, err)
		return
	}

	var req ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: invalid query parameters", errBadRequest))
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	views, err := h.projections.ListByProject(c.Request.Context(), projectID, req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"documents": views,
			"limit":     req.Limit,
			"offset":    req.Offset,
			"count":     len(views),
		},
	})
}

// ListMembers handles GET /api/projects/:projectId/members
func (h *Handlers) ListMembers(c *gin.Context) {
	projectID := c.Param("projectId")
	if _, err := h.requireMember(c, projectID); err != nil {
		h.respondError(c, err)
		return
	}

	members, err := h.members.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: members})
}

// SetMember handles PUT /api/projects/:projectId/members/:userId.
// Only project admins may change memberships.
func (h *Handlers) SetMember(c *gin.Context) {
	projectID := c.Param("projectId")
	userID := c.Param("userId")

	caller, err := h.requireMember(c, projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if caller.ProjectRole != entity.RoleAdmin {
		h.respondError(c, fmt.Errorf("%w: only project admins may change memberships", authz.ErrDenied))
		return
	}

	var req SetMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := validateIDs("user id", userID, "project id", projectID); err != nil {
		h.respondError(c, err)
		return
	}
	role, ok := entity.ParseProjectRole(req.ProjectRole)
	if !ok {
		h.respondError(c, fmt.Errorf("%w: unknown project role %q", errBadRequest, req.ProjectRole))
		return
	}

	m := &entity.Membership{Principal: entity.Principal{
		UserID:      userID,
		ProjectID:   projectID,
		ProjectRole: role,
		CanSign:     req.CanSign,
	}}
	if err := h.members.Upsert(c.Request.Context(), m); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("Membership updated",
		zap.String("project_id", projectID),
		zap.String("user_id", userID),
		zap.String("project_role", role.String()),
		zap.Bool("can_sign", req.CanSign),
		zap.String("updated_by", caller.UserID))

	c.JSON(http.StatusOK, Response{Success: true, Data: m})
}

// readableDocument loads the document named by :id and checks the caller is
// a member of its project. It writes the error response itself.
func (h *Handlers) readableDocument(c *gin.Context) (*projection.DocumentView, bool) {
	view, err := h.projections.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if _, err := h.requireMember(c, view.ProjectID); err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return view, true
}

func (h *Handlers) requireMember(c *gin.Context, projectID string) (*entity.Principal, error) {
	userID := currentUser(c)
	principal, err := h.members.Resolve(c.Request.Context(), userID, projectID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, &authz.DeniedError{
			Reason:    authz.ReasonNotProjectMember,
			UserID:    userID,
			ProjectID: projectID,
			Action:    domainwf.Action("READ"),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	return principal, nil
}

// validateIDs takes (kind, value) pairs
func validateIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := utils.ValidateIdentifier(pairs[i], pairs[i+1]); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	return nil
}
