package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/promoscan/internal/baseline"
)

// WriteRuns writes the stored run history, one run per line.
func WriteRuns(w io.Writer, runs []baseline.Run) error {
	if _, err := fmt.Fprintln(w, strings.Join([]string{"#ID", "Strategy", "Created", "Tasks", "Predictions", "Duration"}, "\t")); err != nil {
		return err
	}
	for _, r := range runs {
		values := []string{
			r.ID,
			r.Strategy,
			r.CreatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.Tasks),
			strconv.Itoa(r.Predictions),
			r.Duration.String(),
		}
		if _, err := fmt.Fprintln(w, strings.Join(values, "\t")); err != nil {
			return err
		}
	}
	return nil
}
