// Package server exposes the embedded collections over HTTP.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sheikh-saqib/records-ledger/internal/apperr"
	"github.com/sheikh-saqib/records-ledger/internal/collection"
	"github.com/sheikh-saqib/records-ledger/internal/ledger"
)

type Server struct {
	reports   *collection.Manager
	suppliers *ledger.Reconciler
	logger    *slog.Logger
}

func New(reports *collection.Manager, suppliers *ledger.Reconciler, logger *slog.Logger) *Server {
	return &Server{reports: reports, suppliers: suppliers, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/informes/{id}/contratos", func(c chi.Router) {
			c.Get("/", s.listContracts)
			c.Post("/", s.appendContract)
			c.Get("/{subID}", s.findContract)
			c.Put("/{subID}", s.updateContract)
			c.Delete("/{subID}", s.deleteContract)
		})
		api.Route("/proveedores/{id}/comprobantes", func(c chi.Router) {
			c.Get("/", s.listVouchers)
			c.Post("/", s.appendVoucher)
			c.Get("/{subID}", s.findVoucher)
			c.Put("/{subID}", s.updateVoucher)
			c.Delete("/{subID}", s.removeVoucher)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "Request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

func parentID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", apperr.ErrInvalidInput, raw)
	}
	return id, nil
}

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.reports.List(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) appendContract(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fields, err := readField(r, "nuevoDato")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, _, err := s.reports.Append(r.Context(), id, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowView(row, s.reports.Table()))
}

func (s *Server) findContract(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.reports.Find(r.Context(), id, chi.URLParam(r, "subID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateContract(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	patch, err := readField(r, "datosActualizados")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := s.reports.Update(r.Context(), id, chi.URLParam(r, "subID"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowView(row, s.reports.Table()))
}

func (s *Server) deleteContract(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := s.reports.Delete(r.Context(), id, chi.URLParam(r, "subID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowView(row, s.reports.Table()))
}

func (s *Server) listVouchers(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vouchers, err := s.suppliers.Vouchers(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vouchers)
}

func (s *Server) appendVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	voucher, err := readField(r, "comprobante")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, _, err := s.suppliers.AppendVoucher(r.Context(), id, voucher)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"proveedorActualizado": rowView(row, s.suppliers.Table())})
}

func (s *Server) findVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	voucher, err := s.suppliers.FindVoucher(r.Context(), id, chi.URLParam(r, "subID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voucher)
}

func (s *Server) updateVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	patch, err := readField(r, "datosActualizados")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := s.suppliers.UpdateVoucher(r.Context(), id, chi.URLParam(r, "subID"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proveedorActualizado": rowView(row, s.suppliers.Table())})
}

func (s *Server) removeVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := parentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := s.suppliers.RemoveVoucher(r.Context(), id, chi.URLParam(r, "subID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proveedorActualizado": rowView(row, s.suppliers.Table())})
}
