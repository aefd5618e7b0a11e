package firestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/stylefit/api/internal/domain"
)

func encodeListToken(orderedAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", orderedAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}

func chooseTime(primary time.Time, fallback time.Time) time.Time {
	if !primary.IsZero() {
		return primary.UTC()
	}
	if !fallback.IsZero() {
		return fallback.UTC()
	}
	return time.Time{}
}

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	ts := value.UTC()
	return &ts
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, strings.TrimSpace(value))
	}
	return out
}

func encodeMeasurements(set domain.MeasurementSet) map[string]float64 {
	if len(set) == 0 {
		return nil
	}
	out := make(map[string]float64, len(set))
	for region, value := range set {
		key := strings.TrimSpace(string(region))
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func decodeMeasurements(doc map[string]float64) domain.MeasurementSet {
	if len(doc) == 0 {
		return nil
	}
	out := make(domain.MeasurementSet, len(doc))
	for key, value := range doc {
		region := domain.Region(strings.TrimSpace(key))
		if region == "" {
			continue
		}
		out[region] = value
	}
	return out
}

func encodeFitDetails(details map[domain.Region]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]string, len(details))
	for region, descriptor := range details {
		out[string(region)] = descriptor
	}
	return out
}

func decodeFitDetails(doc map[string]string) map[domain.Region]string {
	if len(doc) == 0 {
		return nil
	}
	out := make(map[domain.Region]string, len(doc))
	for key, descriptor := range doc {
		out[domain.Region(key)] = descriptor
	}
	return out
}
