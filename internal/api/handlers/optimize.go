package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ingest"
	"route-optimizer-service/internal/services"
	"strconv"
	"strings"
)

const maxUploadBytes = 10 << 20

// OptimizeHandler accepts a store CSV upload, runs the optimization
// pipeline, and streams progress plus the final plan as NDJSON.
type OptimizeHandler struct {
	Optimizer *services.Optimizer
}

// Optimize handles POST /optimize. Input validation failures respond with
// a plain 400 before any streaming begins; once the stream is open,
// failures are reported as a terminal error event.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	if len(raw) > maxUploadBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, "uploaded file too large")
		return
	}

	req, err := buildRequest(r, raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	emit := func(v any) {
		if err := enc.Encode(v); err != nil {
			log.Printf("stream encode failed: path=%s err=%v", r.URL.Path, err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	plan, err := h.Optimizer.Optimize(r.Context(), *req, func(stage string, current, total int, address string) {
		emit(dto.ProgressEvent{
			Type:    dto.EventProgress,
			Stage:   stage,
			Current: current,
			Total:   total,
			Address: address,
		})
	})
	if err != nil {
		log.Printf("optimize failed: %v", err)
		emit(dto.ErrorEvent{Type: dto.EventError, Detail: err.Error()})
		return
	}

	data, err := buildResult(plan)
	if err != nil {
		log.Printf("render result failed: %v", err)
		emit(dto.ErrorEvent{Type: dto.EventError, Detail: "failed to render result"})
		return
	}

	emit(dto.ResultEvent{Type: dto.EventResult, Data: *data})
}

// buildRequest parses and validates the multipart form fields into an
// optimizer request.
func buildRequest(r *http.Request, raw []byte) (*services.OptimizeRequest, error) {
	header, rows, err := ingest.ParseCSV(raw)
	if err != nil {
		return nil, err
	}

	stores, err := ingest.BuildStores(header, rows, strings.TrimSpace(r.FormValue("address_column")))
	if err != nil {
		return nil, err
	}

	storesPerDay := 0
	if v := strings.TrimSpace(r.FormValue("stores_per_day")); v != "" {
		storesPerDay, err = strconv.Atoi(v)
		if err != nil || storesPerDay < 1 {
			return nil, errors.New("stores_per_day must be a positive integer")
		}
	}

	mode := domain.JourneyContinue
	if v := strings.TrimSpace(r.FormValue("journey_mode")); v != "" {
		mode, err = domain.ParseJourneyMode(v)
		if err != nil {
			return nil, err
		}
	}

	startAddress := strings.TrimSpace(r.FormValue("start_address"))
	if mode.NeedsDepot() && startAddress == "" {
		return nil, fmt.Errorf("journey mode %s requires start_address", mode)
	}

	prioritize := false
	if v := strings.TrimSpace(r.FormValue("prioritize_revenue")); v != "" {
		prioritize, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("prioritize_revenue must be a boolean")
		}
	}
	if prioritize && !anyRevenue(stores) {
		return nil, errors.New("prioritize_revenue is set but no revenue column was detected (expected a header like revenue, omsætning or sales)")
	}

	biasStrength := 0.0
	if v := strings.TrimSpace(r.FormValue("bias_strength")); v != "" {
		biasStrength, err = strconv.ParseFloat(v, 64)
		if err != nil || biasStrength < 0 || biasStrength > 1 {
			return nil, errors.New("bias_strength must be a number between 0 and 1")
		}
	}

	return &services.OptimizeRequest{
		Stores:              stores,
		StoresPerDay:        storesPerDay,
		PrioritizeRevenue:   prioritize,
		RevenueBiasStrength: biasStrength,
		Mode:                mode,
		StartAddress:        startAddress,
	}, nil
}

func anyRevenue(stores []services.StoreInput) bool {
	for _, s := range stores {
		if s.Revenue != nil {
			return true
		}
	}
	return false
}

func buildResult(plan *domain.RoutePlan) (*dto.ResultData, error) {
	download, err := ingest.RenderVisitCSVBase64(plan.Stops)
	if err != nil {
		return nil, err
	}

	stops := make([]dto.VisitStopResponse, 0, len(plan.Stops))
	for _, s := range plan.Stops {
		stops = append(stops, dto.VisitStopResponse{
			VisitOrder: s.VisitOrder,
			Day:        s.Day,
			Name:       s.Name,
			Address:    s.Address,
			Lat:        s.Lat,
			Lng:        s.Lng,
			LegMeters:  s.LegMeters,
			Revenue:    s.Revenue,
			URL:        s.URL,
		})
	}

	sum := plan.Summary
	summary := dto.SummaryResponse{
		TotalMeters:     sum.TotalMeters,
		AvgLegMeters:    sum.AvgLegMeters,
		MaxLegMeters:    sum.MaxLegMeters,
		MinLegMeters:    sum.MinLegMeters,
		NumDays:         sum.NumDays,
		TotalStores:     sum.TotalStores,
		FailedGeocoding: sum.FailedGeocoding,
		JourneyMode:     sum.JourneyMode.String(),
		StartAddress:    sum.StartAddress,
	}
	if sum.StartPoint != nil {
		summary.StartPoint = &dto.PointResponse{Lat: sum.StartPoint.Lat, Lng: sum.StartPoint.Lng}
	}
	if sum.BaseCommute != nil {
		summary.BaseCommute = &dto.BaseCommuteResponse{
			ToFirstMeters:   sum.BaseCommute.ToFirstMeters,
			FromLastMeters:  sum.BaseCommute.FromLastMeters,
			IncludeFromLast: sum.BaseCommute.IncludeFromLast,
		}
	}

	return &dto.ResultData{Stores: stops, Summary: summary, CSVDownload: download}, nil
}
