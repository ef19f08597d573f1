package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/services/grading"
	"gitlab.com/fcv-grader.net/internal/core/services/submission"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/handlers/response"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

const (
	maxBodyBytes   = 4 << 20
	streamWriteTTL = 10 * time.Second
)

// Handler handles grading API requests
type Handler struct {
	gradingService    grading.IGradingService
	submissionService submission.ISubmissionService
	logger            primary.Logger
	upgrader          websocket.Upgrader
}

// NewHandler creates a new grading handler
func NewHandler(
	gradingService grading.IGradingService,
	submissionService submission.ISubmissionService,
	logger primary.Logger,
) *Handler {
	return &Handler{
		gradingService:    gradingService,
		submissionService: submissionService,
		logger:            logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the API routes for Handler.
// wrap is applied to the endpoints that start grading work.
func (h *Handler) RegisterRoutes(router *mux.Router, wrap func(http.Handler) http.Handler) {
	router.Handle("/api/execute", wrap(http.HandlerFunc(h.Execute))).Methods(http.MethodPost)
	router.Handle("/api/execute/stream", wrap(http.HandlerFunc(h.Stream))).Methods(http.MethodGet)
	router.Handle("/api/submissions", wrap(http.HandlerFunc(h.Submit))).Methods(http.MethodPost)
	router.HandleFunc("/api/submissions/{submissionId}", h.GetSubmission).Methods(http.MethodGet)
}

// Execute grades a request synchronously and returns the aggregate report
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		response.WriteErr(w, err)
		return
	}
	if err := h.gradingService.Validate(req); err != nil {
		response.WriteErr(w, err)
		return
	}

	report, err := h.gradingService.GradeAll(r.Context(), req)
	if err != nil {
		h.logger.Error("Execution failed", "error", err)
		response.WriteError(w, response.ErrorMessage{
			Message:    fmt.Sprintf("Execution failed: %s", err),
			StatusCode: response.StatusFor(err),
		})
		return
	}

	response.WriteSuccess(w, report)
}

// Submit stores a submission and queues it for background grading
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		response.WriteErr(w, err)
		return
	}

	s, err := h.submissionService.Submit(r.Context(), req)
	if err != nil {
		h.logger.Error("Failed to submit", "error", err)
		response.WriteErr(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, SubmitResponse{
		SubmissionID: s.ID,
		Status:       s.Status,
	})
}

// GetSubmission returns a submission with its report once graded
func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["submissionId"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid submission ID", StatusCode: http.StatusBadRequest})
		return
	}

	s, err := h.submissionService.Get(r.Context(), id)
	if err != nil {
		if response.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("Failed to get submission", "submissionId", id, "error", err)
		}
		response.WriteErr(w, err)
		return
	}

	response.WriteSuccess(w, s)
}

// Stream grades one request over a websocket, sending a frame per finished test case and then the report.
// Closing the socket cancels the remaining work.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	var body ExecuteRequest
	if err := conn.ReadJSON(&body); err != nil {
		h.writeFrame(conn, streamMessage{Type: messageError, Error: fmt.Sprintf("%s: %s", errs.ErrInvalidRequest, err)})
		return
	}
	req, err := body.ToGradeRequest(r.URL.Query().Get("function_signature"))
	if err == nil {
		err = h.gradingService.Validate(req)
	}
	if err != nil {
		h.writeFrame(conn, streamMessage{Type: messageError, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// any read error means the peer is gone
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	report, err := h.gradingService.GradeStream(ctx, req, func(index int, result domain.ExecutionResult) {
		h.writeFrame(conn, streamMessage{Type: messageResult, Index: &index, Result: &result})
	})
	if err != nil {
		h.writeFrame(conn, streamMessage{Type: messageError, Error: err.Error()})
		return
	}
	h.writeFrame(conn, streamMessage{Type: messageReport, Report: report})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *Handler) writeFrame(conn *websocket.Conn, msg streamMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTTL))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("Failed to write stream frame", "type", msg.Type, "error", err)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*domain.GradeRequest, error) {
	var body ExecuteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		h.logger.Debug("Failed to decode request", "error", err)
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err)
	}
	return body.ToGradeRequest(r.URL.Query().Get("function_signature"))
}
