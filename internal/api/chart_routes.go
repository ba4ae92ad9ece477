package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kjannette/chart-cache/internal/apperr"
	"github.com/kjannette/chart-cache/internal/codec"
	"github.com/kjannette/chart-cache/internal/models"
)

func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	basketID := r.PathValue("basketId")
	year, err := parseYear(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	rec, err := s.store.Get(r.Context(), basketID, year)
	if err != nil {
		s.writeAppError(w, r, fmt.Errorf("get chart %s/%d: %w", basketID, year, err))
		return
	}
	if rec == nil {
		s.writeAppError(w, r, apperr.ErrNotFound)
		return
	}

	payload, err := rec.Decode()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeNegotiated(s, w, r, http.StatusOK, *payload)
}

func (s *Server) handlePutChart(w http.ResponseWriter, r *http.Request) {
	basketID := r.PathValue("basketId")
	year, err := parseYear(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	payload, err := s.decodeChart(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if payload.BasketID != basketID {
		s.writeAppError(w, r, apperr.ErrKeyMismatch)
		return
	}

	nowMs := s.now().UnixMilli()
	rec, err := models.NewChartRecord(basketID, year, payload, nowMs)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.store.Upsert(r.Context(), rec); err != nil {
		s.writeAppError(w, r, fmt.Errorf("upsert chart %s/%d: %w", basketID, year, err))
		return
	}

	writeNegotiated(s, w, r, http.StatusOK, models.WriteResult{OK: true, UpdatedAtMs: nowMs})
}

// decodeChart reads the request body in its declared media type and checks
// the chart shape.
func (s *Server) decodeChart(r *http.Request) (*models.ChartPayload, error) {
	mt, ok := codec.FromContentType(r.Header.Get("Content-Type"))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", apperr.ErrValidation, r.Header.Get("Content-Type"))
	}
	inner, _ := codec.For[models.ChartPayloadInput](mt)
	dec := codec.Limit[models.ChartPayloadInput]{Inner: inner, MaxDecode: s.maxBodyBytes}

	// One byte past the limit is enough for the codec to reject it.
	var src io.Reader = r.Body
	if s.maxBodyBytes > 0 {
		src = io.LimitReader(r.Body, s.maxBodyBytes+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperr.ErrValidation, err)
	}

	in, err := dec.Decode(body)
	if errors.Is(err, codec.ErrTooLarge) {
		return nil, apperr.ErrTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid body: %v", apperr.ErrValidation, err)
	}
	return in.Payload()
}
