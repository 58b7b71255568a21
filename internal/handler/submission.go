package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/magnogrupo/portal/internal/ctxkeys"
	"github.com/magnogrupo/portal/internal/handler/respond"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/repository"
	"github.com/magnogrupo/portal/internal/service"
	"github.com/magnogrupo/portal/internal/signature"
	"github.com/magnogrupo/portal/internal/upload"
	"github.com/magnogrupo/portal/internal/validation"
	"github.com/magnogrupo/portal/internal/wizard"
)

const maxUploadBytes = 64 << 20

type submissionHandler struct {
	submissionService *service.SubmissionService
	authService       *service.AuthService
	staging           *upload.Staging
	media             upload.Uploader
	jwtExpiry         time.Duration
}

func NewSubmissionHandler(submissionService *service.SubmissionService, authService *service.AuthService, staging *upload.Staging, media upload.Uploader, jwtExpiry time.Duration) *submissionHandler {
	return &submissionHandler{
		submissionService: submissionService,
		authService:       authService,
		staging:           staging,
		media:             media,
		jwtExpiry:         jwtExpiry,
	}
}

// strategy picks immediate uploads for signed-in owners and deferred staging
// for guests.
func (h *submissionHandler) strategy(r *http.Request) upload.Strategy {
	if user := ctxkeys.User(r.Context()); user != nil {
		return upload.NewImmediateStrategy(h.media, user.ID)
	}
	return upload.NewDeferredStrategy(h.staging, h.media, ctxkeys.WizardSession(r.Context()))
}

// Resume reports where the wizard should start for the signed-in owner.
func (h *submissionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	subType := r.URL.Query().Get("type")
	if subType != model.SubmissionTypeSale && subType != model.SubmissionTypeRent {
		respond.Error(w, http.StatusBadRequest, "type must be sale or rent")
		return
	}

	user := ctxkeys.User(r.Context())
	if user == nil {
		respond.OK(w, map[string]any{"step": wizard.StepContact})
		return
	}

	sub, step, err := h.submissionService.Resume(user.ID, subType)
	if err != nil {
		slog.Error("failed to resume submission", "error", err, "user_id", user.ID)
		respond.Error(w, http.StatusInternalServerError, "failed to load your submission")
		return
	}

	if sub == nil {
		respond.OK(w, map[string]any{"step": step})
		return
	}

	respond.OK(w, map[string]any{"step": step, "submission": submissionPayload(sub)})
}

type validateStepRequest struct {
	Step int            `json:"step"`
	Form model.FormData `json:"form"`
}

// ValidateStep checks one wizard step and returns the step to advance to.
func (h *submissionHandler) ValidateStep(w http.ResponseWriter, r *http.Request) {
	var req validateStepRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hasAccount := ctxkeys.User(r.Context()) != nil
	err = wizard.Validate(req.Step, &req.Form, hasAccount)
	if err != nil {
		if errors.Is(err, wizard.ErrUnknownStep) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		respond.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":   false,
			"message": err.Error(),
		})
		return
	}

	respond.OK(w, map[string]any{"valid": true, "next_step": wizard.Next(req.Step)})
}

type draftRequest struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Form model.FormData `json:"form"`
}

// SaveDraft stores the wizard state for a signed-in owner.
func (h *submissionHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req draftRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != model.SubmissionTypeSale && req.Type != model.SubmissionTypeRent {
		respond.Error(w, http.StatusBadRequest, "type must be sale or rent")
		return
	}

	sub, err := h.loadOrNewSubmission(req.ID, req.Type, user)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "submission not found")
		return
	}
	sub.FormData = req.Form
	sub.FormData.Password = ""

	err = h.submissionService.SaveDraft(sub)
	if err != nil {
		slog.Error("failed to save draft", "error", err, "user_id", user.ID)
		respond.Error(w, http.StatusInternalServerError, "failed to save your progress")
		return
	}

	respond.OK(w, map[string]any{"id": sub.ID, "status": sub.Status})
}

// UploadFiles receives multipart files for one wizard field.
func (h *submissionHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	field := upload.Field(r.PathValue("field"))
	if !upload.ValidField(field) {
		respond.Error(w, http.StatusBadRequest, "unknown upload field")
		return
	}

	err := r.ParseMultipartForm(maxUploadBytes)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	formJSON := r.FormValue("form")
	var form model.FormData
	if formJSON != "" {
		err = json.Unmarshal([]byte(formJSON), &form)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid form state")
			return
		}
	}

	constraints := validation.ImageConstraints
	if field == upload.FieldIdentification || field == upload.FieldPredial {
		constraints = validation.DocumentConstraints
	}

	var files []upload.File
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		err = validation.ValidateFile(header.Filename, content, constraints)
		if err != nil {
			respond.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		files = append(files, upload.File{Name: header.Filename, Content: content})
	}
	if len(files) == 0 {
		respond.Error(w, http.StatusBadRequest, "no files provided")
		return
	}

	notice, err := h.strategy(r).HandleFile(r.Context(), &form, field, files)
	if err != nil {
		slog.Error("file upload failed", "error", err, "field", field)
		respond.Error(w, http.StatusInternalServerError, "failed to store the uploaded file")
		return
	}

	respond.OK(w, map[string]any{
		"form":   form,
		"notice": notice,
	})
}

type prepareRequest struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Form model.FormData `json:"form"`
}

// Prepare confirms the preview step: it creates the guest's account if
// needed, flushes deferred uploads, and generates the unsigned documents.
func (h *submissionHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req prepareRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != model.SubmissionTypeSale && req.Type != model.SubmissionTypeRent {
		respond.Error(w, http.StatusBadRequest, "type must be sale or rent")
		return
	}

	sub, err := h.loadOrNewSubmission(req.ID, req.Type, user)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "submission not found")
		return
	}
	password := req.Form.Password
	sub.FormData = req.Form
	sub.FormData.Password = password

	result, err := h.submissionService.Prepare(r.Context(), service.PrepareInput{
		Submission: sub,
		Strategy:   h.strategy(r),
	})
	if err != nil {
		h.writePrepareError(w, err)
		return
	}

	// A guest just became an account holder: issue their session now so the
	// signature step is authenticated.
	if result.NewUser != nil {
		jwtToken, err := h.authService.GenerateJWT(result.NewUser)
		if err != nil {
			slog.Error("failed to generate JWT", "error", err, "user_id", result.NewUser.ID)
		} else {
			h.authService.SetJWTCookie(w, jwtToken, time.Now().Add(h.jwtExpiry))
		}
	}

	respond.OK(w, map[string]any{"submission": submissionPayload(sub)})
}

func (h *submissionHandler) writePrepareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyProcessing),
		errors.Is(err, service.ErrAlreadySigned),
		errors.Is(err, service.ErrNotResumable):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAcceptanceRequired):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrEmailAlreadyExists):
		respond.Error(w, http.StatusConflict, "an account with this email already exists, please sign in first")
	default:
		slog.Error("submission preparation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to prepare your documents, please try again")
	}
}

type signRequest struct {
	Mode      string             `json:"mode"`
	PenColor  string             `json:"pen_color"`
	Strokes   []signature.Stroke `json:"strokes"`
	TypedName string             `json:"typed_name"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
}

// Sign renders the signature and finalizes the submission.
func (h *submissionHandler) Sign(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	sub, err := h.ownedSubmission(id, user)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "submission not found")
		return
	}

	var req signRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := renderSignature(req)
	if err != nil {
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	err = h.submissionService.Sign(r.Context(), sub, payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyProcessing), errors.Is(err, service.ErrAlreadySigned):
			respond.Error(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrNotReadyToSign):
			respond.Error(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.Error("signing failed", "error", err, "submission_id", id)
			respond.Error(w, http.StatusInternalServerError, "failed to sign your documents, please try again")
		}
		return
	}

	respond.OK(w, map[string]any{"submission": submissionPayload(sub)})
}

func renderSignature(req signRequest) (string, error) {
	width, height := req.Width, req.Height
	if width <= 0 || height <= 0 {
		width, height = 600, 200
	}

	pad := signature.NewPad(width, height)
	if req.Mode == string(signature.ModeType) {
		pad.SetMode(signature.ModeType)
		pad.SetTypedName(req.TypedName)
	}
	pad.SetPenColor(req.PenColor)
	for _, stroke := range req.Strokes {
		pad.AddStroke(stroke)
	}

	return pad.Payload()
}

// List returns the signed-in owner's submissions.
func (h *submissionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	subs, err := h.submissionService.ByOwner(user.ID)
	if err != nil {
		slog.Error("failed to list submissions", "error", err, "user_id", user.ID)
		respond.Error(w, http.StatusInternalServerError, "failed to load your submissions")
		return
	}

	payload := make([]map[string]any, 0, len(subs))
	for i := range subs {
		payload = append(payload, submissionPayload(&subs[i]))
	}
	respond.OK(w, map[string]any{"submissions": payload})
}

// Get returns one owned submission.
func (h *submissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	sub, err := h.ownedSubmission(r.PathValue("id"), user)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "submission not found")
		return
	}

	respond.OK(w, map[string]any{"submission": submissionPayload(sub)})
}

// Documents lists the archived signed documents for an owned submission.
func (h *submissionHandler) Documents(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	sub, err := h.ownedSubmission(r.PathValue("id"), user)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "submission not found")
		return
	}

	docs, err := h.submissionService.SignedDocuments(sub.ID)
	if err != nil {
		slog.Error("failed to load signed documents", "error", err, "submission_id", sub.ID)
		respond.Error(w, http.StatusInternalServerError, "failed to load documents")
		return
	}

	respond.OK(w, map[string]any{"documents": docs})
}

// loadOrNewSubmission resolves the target submission: an existing one when an
// id is supplied (with ownership check), a fresh one otherwise.
func (h *submissionHandler) loadOrNewSubmission(id, subType string, user *model.User) (*model.Submission, error) {
	if id == "" {
		sub := &model.Submission{Type: subType}
		if user != nil {
			sub.OwnerID = &user.ID
		}
		return sub, nil
	}

	if user == nil {
		return nil, repository.ErrSubmissionNotFound
	}
	return h.ownedSubmission(id, user)
}

func (h *submissionHandler) ownedSubmission(id string, user *model.User) (*model.Submission, error) {
	sub, err := h.submissionService.ByID(id)
	if err != nil {
		return nil, err
	}
	if !sub.HasOwner() || *sub.OwnerID != user.ID {
		return nil, repository.ErrSubmissionNotFound
	}
	return sub, nil
}

func submissionPayload(sub *model.Submission) map[string]any {
	return map[string]any{
		"id":         sub.ID,
		"type":       sub.Type,
		"status":     sub.Status,
		"is_signed":  sub.IsSigned,
		"form":       sub.FormData,
		"created_at": sub.CreatedAt,
		"updated_at": sub.UpdatedAt,
	}
}
