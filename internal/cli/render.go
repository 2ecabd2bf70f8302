package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"docwise-client/internal/gateway"
)

func printUser(w io.Writer, u *gateway.User) {
	fmt.Fprintf(w, "%s <%s>\n", u.Name, u.Email)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(w, "    Member since: %s\n", formatTimestamp(u.CreatedAt.Time))
	}
}

func printPrompt(w io.Writer, p gateway.Prompt) {
	fmt.Fprintf(w, "%s  %s\n", p.ID, p.Title)
	fmt.Fprintf(w, "    %s\n", truncate(p.Content, 80))
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "    Updated: %s\n", formatTimestamp(p.UpdatedAt.Time))
	}
}

func printAnalysis(w io.Writer, a gateway.Analysis) {
	fmt.Fprintf(w, "%s  %s  [%s]\n", a.ID, a.DocumentName, a.AIModel)
	if !a.CreatedAt.IsZero() {
		fmt.Fprintf(w, "    Created: %s\n", formatTimestamp(a.CreatedAt.Time))
	}
	fmt.Fprintf(w, "    %s\n", truncate(a.Response, 80))
}

// formatTimestamp renders t relative to now, falling back to a date once it
// is more than a week old.
func formatTimestamp(t time.Time) string {
	if time.Since(t) > 7*24*time.Hour {
		return t.Local().Format("Jan 2, 2006")
	}
	return humanize.Time(t)
}

// truncate flattens whitespace and cuts s at a word boundary near max.
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > max-20 {
		cut = cut[:i]
	}
	return cut + "..."
}

// userError prefers the server's detail message; errors that never reached
// the server keep their own text after fallback.
func userError(err error, fallback string) error {
	if detail := gateway.Detail(err); detail != "" {
		return errors.New(detail)
	}
	var reqErr *gateway.RequestError
	if errors.As(err, &reqErr) {
		return errors.New(fallback)
	}
	return fmt.Errorf("%s: %w", fallback, err)
}
