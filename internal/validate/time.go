package validate

import (
	"strconv"
	"time"
)

// parseISOOrEpoch accepts either an ISO 8601 timestamp or a bare epoch
// seconds string, returning seconds-since-epoch as a float to match
// model.Sample.Timestamp.
func parseISOOrEpoch(s string) (float64, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return float64(t.Unix()), nil
}
