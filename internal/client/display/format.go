package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// PrettyPrintJSON prints formatted JSON
func PrettyPrintJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, Red("Error formatting JSON: %s", err))
		return
	}
	fmt.Fprintln(w, string(data))
}

// Weight formats a load in the user's units
func Weight(w float64, units string) string {
	suffix := "kg"
	if units == "imperial" {
		suffix = "lb"
	}
	return strconv.FormatFloat(w, 'f', -1, 64) + " " + suffix
}

// Clock formats a duration as m:ss, or h:mm:ss past an hour
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ShortID trims a UUID for tables
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
