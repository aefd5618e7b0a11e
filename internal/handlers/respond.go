package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	domain "github.com/stylefit/api/internal/domain"
)

const defaultBodyLimit = 64 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func decodeJSONBody(r *http.Request, limit int64, dst any) error {
	data, err := readLimitedBody(r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.New("invalid JSON payload")
	}
	return nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func paginationFromQuery(r *http.Request) domain.Pagination {
	query := r.URL.Query()
	pager := domain.Pagination{
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			pager.PageSize = size
		}
	}
	return pager
}

func measurementsFromPayload(values map[string]float64) domain.MeasurementSet {
	if len(values) == 0 {
		return nil
	}
	out := make(domain.MeasurementSet, len(values))
	for region, value := range values {
		out[domain.Region(strings.ToLower(strings.TrimSpace(region)))] = value
	}
	return out
}

func measurementsToPayload(set domain.MeasurementSet) map[string]float64 {
	if len(set) == 0 {
		return nil
	}
	out := make(map[string]float64, len(set))
	for region, value := range set {
		out[string(region)] = value
	}
	return out
}

func fitDetailsToPayload(details map[domain.Region]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]string, len(details))
	for region, descriptor := range details {
		out[string(region)] = descriptor
	}
	return out
}
