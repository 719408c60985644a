package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/usecase"
)

// statusClientClosedRequest is reported when the caller went away first.
const statusClientClosedRequest = 499

type Server struct {
	Router *mux.Router
	UCGet  usecase.GetPartitionByID
	Logger *slog.Logger
}

func NewServer(uc usecase.GetPartitionByID, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Router: mux.NewRouter(), UCGet: uc, Logger: logger}
	s.Router.Use(s.withLogger)
	s.Router.HandleFunc("/api/catalogs/{catalog}/layers/{layer}/partitions/{id}", s.handleGet).Methods(http.MethodGet)
	s.Router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	return s
}

// withLogger puts a request-scoped logger into the request context.
func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogcontext.NewCtx(r.Context(), s.Logger.With("method", r.Method, "path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req := domain.PartitionRequest{}.WithPartitionID(vars["id"])

	q := r.URL.Query()
	if v := q.Get("version"); v != "" {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: domain.ErrorKindPreconditionFailed.String(), Message: "version must be an integer"})
			return
		}
		req = req.WithVersion(version)
	}
	option, ok := domain.ParseFetchOption(q.Get("fetch"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: domain.ErrorKindPreconditionFailed.String(), Message: "unknown fetch option"})
		return
	}
	req = req.WithFetchOption(option)

	cc, stop := cancellation.FromContext(r.Context())
	defer stop()

	res, err := s.UCGet.Execute(cc, vars["catalog"], vars["layer"], req)
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			slogcontext.FromCtx(r.Context()).Warn("partition request failed", "error", err)
		}
		writeJSON(w, status, errorBody{Error: domain.KindOf(err).String(), Message: messageOf(err)})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StatusFor maps an error kind to the HTTP status of the facade.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrorKindPreconditionFailed:
		return http.StatusBadRequest
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindAccessDenied:
		return http.StatusForbidden
	case domain.ErrorKindRequestTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrorKindCancelled:
		return statusClientClosedRequest
	case domain.ErrorKindServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	var e *domain.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
