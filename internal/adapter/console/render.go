package console

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

const timeLayout = "2006-01-02 15:04:05Z07:00"

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func magnitude(m *domain.Magnitude) string {
	if m == nil {
		return "-"
	}
	v := strconv.FormatFloat(m.Value, 'f', 1, 64)
	if m.Descriptor != "" {
		v += " " + m.Descriptor
	}
	return v
}

func coords(c domain.Coordinates) string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon)
}

func renderPending(w io.Writer, rows iter.Seq[review.EventSummary]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tOCCURRED\tEPICENTER\tHYPOCENTER\tMAGNITUDE\tID")
	n := 0
	for r := range rows {
		n++
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			n, r.OccurredAt.Format(timeLayout), coords(r.Epicenter), coords(r.Hypocenter), magnitude(r.Magnitude), r.ID)
	}
	_ = tw.Flush()
	if n == 0 {
		fmt.Fprintln(w, "no events awaiting review")
	}
}

func renderDetail(w io.Writer, d review.EventDetail) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "event\t%s\n", d.ID)
	fmt.Fprintf(tw, "state\t%s since %s\n", d.State, d.StateSince.Format(timeLayout))
	fmt.Fprintf(tw, "occurred\t%s\n", d.OccurredAt.Format(timeLayout))
	if !d.EndedAt.IsZero() {
		fmt.Fprintf(tw, "ended\t%s\n", d.EndedAt.Format(timeLayout))
	}
	fmt.Fprintf(tw, "epicenter\t%s\n", coords(d.Epicenter))
	fmt.Fprintf(tw, "hypocenter\t%s\n", coords(d.Hypocenter))
	fmt.Fprintf(tw, "magnitude\t%s\n", magnitude(d.Magnitude))
	fmt.Fprintf(tw, "scope\t%s\n", orDash(d.Scope.Name))
	fmt.Fprintf(tw, "classification\t%s\n", orDash(d.Classification.Name))
	fmt.Fprintf(tw, "origin\t%s\n", orDash(d.Origin.Name))
	if d.Place.FormattedAddress != "" {
		fmt.Fprintf(tw, "place\t%s\n", d.Place.FormattedAddress)
	}
	_ = tw.Flush()

	for _, table := range d.ByStation() {
		renderSeries(w, table)
	}
}

func renderSeries(w io.Writer, s review.SeriesTable) {
	header := "station " + orDash(s.Station)
	if s.Seismograph != "" {
		header += " (" + s.Seismograph + ")"
	}
	header += fmt.Sprintf(", %g Hz", s.FrequencyHz)
	if s.AlarmCondition {
		header += ", alarm"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, header)
	if len(s.Rows) == 0 {
		fmt.Fprintln(w, "  no samples")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range s.Rows {
		readings := make([]string, 0, len(row.Readings))
		for _, rd := range row.Readings {
			v := rd.Name + "=" + strconv.FormatFloat(rd.Value, 'g', -1, 64)
			if rd.Unit != "" {
				v += " " + rd.Unit
			}
			readings = append(readings, v)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", row.TakenAt.Format(timeLayout), strings.Join(readings, "\t"), row.Note)
	}
	_ = tw.Flush()
}

func renderFilters(w io.Writer, f review.Filters) {
	fmt.Fprintf(w, "scope=%s classification=%s origin=%s\n", orDash(f.Scope), orDash(f.Classification), orDash(f.Origin))
}

func renderStatus(w io.Writer, st review.Status) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "user\t%s\n", st.Session.User)
	fmt.Fprintf(tw, "session\t%s\n", st.Session.ID)
	fmt.Fprintf(tw, "pending\t%d\n", st.Pending)
	if st.SelectedID != "" {
		fmt.Fprintf(tw, "selected\t%s (%s)\n", st.SelectedID, st.SelectedState)
	}
	if st.UnsyncedID != "" {
		fmt.Fprintf(tw, "unsaved\t%s as %s\n", st.UnsyncedID, st.UnsyncedState)
	}
	_ = tw.Flush()
}
