package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumeo/feedrank/internal/feed"
	"github.com/lumeo/feedrank/internal/geo"
	"github.com/lumeo/feedrank/internal/middleware"
)

// maxRankRequestBytes bounds rank request bodies; a ranking request is a few
// identifiers and location strings, never more.
const maxRankRequestBytes = 64 << 10

// LocationInput is one structured location signal in a rank request.
type LocationInput struct {
	CountryCode string `json:"country_code,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	Country     string `json:"country,omitempty"`
}

// LocationSignals carries the raw location inputs of a rank request.
// Any subset may be present; the service resolves them in trust order.
type LocationSignals struct {
	GPS         *LocationInput `json:"gps,omitempty"`
	IP          *LocationInput `json:"ip,omitempty"`
	ProfileText string         `json:"profile_text,omitempty"`
}

// RankFeedRequest is the JSON body of POST /v1/feed/rank.
type RankFeedRequest struct {
	ViewerID  string          `json:"viewer_id"`
	Location  LocationSignals `json:"location"`
	Offset    int             `json:"offset,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	SkipCache bool            `json:"skip_cache,omitempty"`
}

// FeedHandlers holds dependencies for feed ranking HTTP handlers.
type FeedHandlers struct {
	service *feed.Service
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(service *feed.Service) *FeedHandlers {
	return &FeedHandlers{service: service}
}

// RankFeed handles POST /v1/feed/rank - scores, ranks, and pages the feed
// for one viewer.
func (h *FeedHandlers) RankFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRankRequestBytes)
	var body RankFeedRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	if body.ViewerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingViewer)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingViewer, "viewer_id is required")
		return
	}

	if body.Offset < 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "offset must not be negative")
		return
	}

	ctx := middleware.SetViewerID(r.Context(), body.ViewerID)
	*r = *r.WithContext(ctx)

	resp, err := h.service.RankFeed(ctx, feed.RankRequest{
		ViewerID:  body.ViewerID,
		Location:  resolveSignals(body.Location),
		Offset:    body.Offset,
		Limit:     body.Limit,
		SkipCache: body.SkipCache,
	})
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrMissingViewerID):
			ctx := middleware.SetErrorCode(ctx, ErrCodeMissingViewer)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeMissingViewer, "viewer_id is required")
		case errors.Is(err, feed.ErrViewerNotFound):
			slog.DebugContext(ctx, "viewer not found for feed rank", "viewer_id", body.ViewerID)
			ctx := middleware.SetErrorCode(ctx, ErrCodeViewerNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeViewerNotFound, "Viewer not found")
		default:
			slog.ErrorContext(ctx, "failed to rank feed", "error", err, "viewer_id", body.ViewerID)
			ctx := middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to rank feed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode rank response", "error", err)
	}
}

// resolveSignals converts the wire-level location inputs into engine signals.
func resolveSignals(in LocationSignals) geo.Signals {
	s := geo.Signals{ProfileText: in.ProfileText}
	if in.GPS != nil {
		s.GPS = geo.NewResolvedLocation(geo.SourceGPS, in.GPS.CountryCode, in.GPS.City, in.GPS.Province, in.GPS.Country)
	}
	if in.IP != nil {
		s.IP = geo.NewResolvedLocation(geo.SourceIP, in.IP.CountryCode, in.IP.City, in.IP.Province, in.IP.Country)
	}
	return s
}
