package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/narrative"
	"github.com/Yates-Labs/folio/internal/orchestrator"
	"github.com/Yates-Labs/folio/internal/rag"
)

// UploadResponse acknowledges an accepted book.
type UploadResponse struct {
	Filename  string `json:"filename"`
	SavedAs   string `json:"saved_as"`
	IndexName string `json:"index_name"`
	Status    string `json:"status"`
	JobID     string `json:"job_id"`
}

// SearchResponse carries either an answer or, with empty results, a message.
type SearchResponse struct {
	Results         []rag.ContextEntry `json:"results"`
	Response        string             `json:"response,omitempty"`
	ResponseHTML    string             `json:"response_html,omitempty"`
	Personality     string             `json:"personality,omitempty"`
	IndexesSearched []string           `json:"indexes_searched,omitempty"`
	Message         string             `json:"message,omitempty"`
}

func (s *Server) uploadBook(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "A .txt file is required in the \"file\" field")
	}

	filename := filepath.Base(file.Filename)
	if !strings.HasSuffix(filename, ".txt") {
		return echo.NewHTTPError(http.StatusBadRequest, "Only .txt files are supported")
	}

	savedAs := uuid.NewString() + "_" + filename
	path := filepath.Join(s.opts.AssetsDir, savedAs)
	if err := saveUpload(file, path); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	indexName := strings.TrimSpace(c.FormValue("index_name"))
	if indexName == "" {
		indexName = s.backend.DefaultIndexName(filename)
	}

	job, err := s.backend.SubmitIndexJob(c.Request().Context(), path, indexName)
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Filename:  file.Filename,
		SavedAs:   savedAs,
		IndexName: job.IndexName,
		Status:    "Processing started in background",
		JobID:     job.ID,
	})
}

func saveUpload(file *multipart.FileHeader, path string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}

func (s *Server) getJob(c echo.Context) error {
	job, err := s.backend.Job(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) bookIndexes(c echo.Context) error {
	indexes, err := s.backend.ListIndexes(c.Request().Context())
	if err != nil {
		return apperror.Wrap(apperror.KindOf(err), err, "Error retrieving book indexes")
	}
	if indexes == nil {
		indexes = []string{}
	}
	return c.JSON(http.StatusOK, map[string][]string{"indexes": indexes})
}

func (s *Server) searchBooks(c echo.Context) error {
	params := c.QueryParams()
	if !params.Has("query") {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter is required")
	}

	limit := s.opts.DefaultLimit
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	personality := narrative.DefaultPersonality
	if name := params.Get("personality"); name != "" {
		p, ok := narrative.ParsePersonality(name)
		if !ok {
			s.logger.Debug().Str("personality", name).Msg("Unknown personality, using default")
		}
		personality = p
	}

	result, err := s.backend.Answer(c.Request().Context(), orchestrator.AnswerRequest{
		Query:       params.Get("query"),
		Index:       strings.TrimSpace(params.Get("index_name")),
		Limit:       limit,
		Personality: personality,
	})
	if err != nil {
		return err
	}

	resp := SearchResponse{Results: result.Results, Message: result.Message}
	if resp.Results == nil {
		resp.Results = []rag.ContextEntry{}
	}
	if result.Answer != nil {
		resp.Response = result.Answer.Text
		resp.Personality = string(result.Answer.Personality)
		resp.IndexesSearched = result.IndexesSearched
		html, err := narrative.RenderHTML(result.Answer.Text)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Markdown rendering failed")
		} else {
			resp.ResponseHTML = html
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
