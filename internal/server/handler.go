package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"atsmatch/internal/errors"
	"atsmatch/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Multipart field names
const (
	fieldResume  = "resume"
	fieldJobFile = "job_file"
	fieldJobText = "job_text"
)

// multipartMemory is held in memory before parts spill to temp files
const multipartMemory = 8 << 20

// analyzeAPIHandler accepts the upload form and answers with the outcome as JSON,
// or as another registered format via ?format=
func (s *Server) analyzeAPIHandler(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if !s.Formatters.IsSupported(format) {
		writeErrorResponse(w, "Unsupported format",
			fmt.Sprintf("format must be one of: %s", strings.Join(s.Formatters.GetSupportedFormats(), ", ")),
			http.StatusBadRequest)
		return
	}

	outcome, err := s.runMatch(r, "api.analyze")
	if err != nil {
		writeAppError(w, err)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, outcome)
		return
	}

	body, err := s.Formatters.Format(outcome, format)
	if err != nil {
		writeErrorResponse(w, "Failed to format result", err.Error(), http.StatusInternalServerError)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if format == "markdown" {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.WriteString(w, body); err != nil {
		s.Logger.LogError(err, "Failed to write response")
	}
}

// analyzeFormHandler serves the browser form submission as an HTML page
func (s *Server) analyzeFormHandler(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.runMatch(r, "web.analyze")
	if err != nil {
		status := http.StatusInternalServerError
		message := err.Error()
		if appErr, ok := errors.As(err); ok {
			status = appErr.HTTPStatus()
			message = appErr.Message
		}
		s.renderHTML(w, status, "result.html", resultPage{Error: message, Provider: s.Matcher.ProviderInfo()})
		return
	}

	raw, err := rawJSON(outcome.Assessment)
	if err != nil {
		s.Logger.LogError(err, "Failed to render raw assessment")
	}
	s.renderHTML(w, http.StatusOK, "result.html", resultPage{
		Outcome:  outcome,
		Provider: outcome.Provider,
		RawJSON:  raw,
	})
}

// runMatch parses the form and executes the pipeline under a request span
func (s *Server) runMatch(r *http.Request, spanName string) (*types.MatchOutcome, error) {
	ctx, span := s.Observer.Tracer("atsmatch.api").Start(r.Context(), spanName)
	defer span.End()

	req, err := s.parseMatchForm(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid form")
		span.SetAttributes(attribute.String("error.type", "validation"))
		return nil, err
	}
	if req.Resume != nil {
		span.SetAttributes(
			attribute.String("request.resume_filename", req.Resume.Filename),
			attribute.Int("request.resume_bytes", len(req.Resume.Data)),
		)
	}
	span.SetAttributes(
		attribute.Bool("request.job_file", req.JobFile != nil),
		attribute.Int("request.job_text_length", len(req.JobText)),
	)

	outcome, err := s.Matcher.Run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "match failed")
		if appErr, ok := errors.As(err); ok {
			span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Bool("saved", outcome.Saved),
		attribute.Int("warnings", len(outcome.Warnings)),
	)
	if outcome.Assessment != nil && outcome.Assessment.ATSScore != nil {
		span.SetAttributes(attribute.Int("ats.score", *outcome.Assessment.ATSScore))
	}
	return outcome, nil
}

// parseMatchForm reads the resume, job_file and job_text fields.
// A missing resume is left nil so the pipeline reports it.
func (s *Server) parseMatchForm(r *http.Request) (types.MatchRequest, error) {
	var req types.MatchRequest

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return req, errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit), nil)
		}
		if !stderrors.Is(err, http.ErrNotMultipart) {
			return req, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid multipart form", err)
		}
		// A urlencoded body can still carry job_text; the resume is then reported missing.
		if err := r.ParseForm(); err != nil {
			return req, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid form", err)
		}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	resume, err := s.readFormFile(r, fieldResume)
	if err != nil {
		return req, err
	}
	// job file problems degrade to a warning in the outcome
	jobFile, err := s.readFormFile(r, fieldJobFile)
	if err != nil {
		req.JobFileErr = err
	}

	req.Resume = resume
	req.JobFile = jobFile
	req.JobText = r.FormValue(fieldJobText)
	return req, nil
}

// readFormFile returns nil when the field is absent or carries no content
func (s *Server) readFormFile(r *http.Request, field string) (*types.Document, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	header := headers[0]
	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}

	maxFileSize := s.AppConfig.App.MaxFileSize
	if maxFileSize > 0 && header.Size > maxFileSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File too large: %d bytes (max %d bytes)", header.Size, maxFileSize), nil).
			WithContext("field", field).
			WithContext("filename", header.Filename)
	}

	data, err := readPart(header)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read uploaded file", err).
			WithContext("field", field)
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &types.Document{Filename: header.Filename, Data: data}, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(file)
}
