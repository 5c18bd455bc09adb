package csvstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// ─── cell formatting helpers ────────────────────────────────────────────

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func atof(s string) (float64, error) { return strconv.ParseFloat(strings.TrimSpace(s), 64) }

func ftoaAll(vs []float64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = ftoa(v)
	}
	return out
}

// formatDelta renders a duration as [-]H:MM:SS[.ffffff].
func formatDelta(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	out := fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	if us := d / time.Microsecond; us > 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	return out
}

func parseDelta(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timedelta %q: want H:MM:SS", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("timedelta hours %q: %w", parts[0], err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("timedelta minutes %q: %w", parts[1], err)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("timedelta seconds %q: %w", parts[2], err)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second)).Round(time.Microsecond)
	if neg {
		d = -d
	}
	return d, nil
}
